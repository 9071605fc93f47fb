package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rot226/lorasim/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the persistence interface for simulation runs and
// their event logs.
type Store interface {
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	CreateRun(ctx context.Context, run *models.SimulationRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.SimulationRun, error)
	UpdateRun(ctx context.Context, run *models.SimulationRun) error
	ListRuns(ctx context.Context, limit, offset int) ([]*models.SimulationRun, int64, error)

	AppendEventRecords(ctx context.Context, runID uuid.UUID, records []models.EventRecord) error
	ListEventRecords(ctx context.Context, runID uuid.UUID, limit, offset int) ([]models.EventRecord, int64, error)

	Close() error
}
