package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rot226/lorasim/internal/models"
)

// CreateRun inserts a new simulation run row.
func (s *PostgresStore) CreateRun(ctx context.Context, run *models.SimulationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	query := `
		INSERT INTO simulation_runs (
			id, created_at, updated_at, seed, status, config,
			started_at, finished_at, packets_sent, packets_delivered,
			packets_lost_collision, packets_lost_no_signal, pdr, energy_j, avg_delay_s
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.getDB().ExecContext(ctx, query,
		run.ID, run.CreatedAt, run.UpdatedAt, run.Seed, run.Status, run.Config,
		run.StartedAt, run.FinishedAt, run.PacketsSent, run.PacketsDelivered,
		run.PacketsLostCollision, run.PacketsLostNoSignal, run.PDR, run.EnergyJ, run.AvgDelayS,
	)
	return err
}

// GetRun fetches a single run by ID.
func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.SimulationRun, error) {
	query := `
		SELECT id, created_at, updated_at, seed, status, config,
			started_at, finished_at, packets_sent, packets_delivered,
			packets_lost_collision, packets_lost_no_signal, pdr, energy_j, avg_delay_s
		FROM simulation_runs WHERE id = $1`

	run := &models.SimulationRun{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.CreatedAt, &run.UpdatedAt, &run.Seed, &run.Status, &run.Config,
		&run.StartedAt, &run.FinishedAt, &run.PacketsSent, &run.PacketsDelivered,
		&run.PacketsLostCollision, &run.PacketsLostNoSignal, &run.PDR, &run.EnergyJ, &run.AvgDelayS,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// UpdateRun persists a run's mutable fields (status, timestamps, final metrics).
func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.SimulationRun) error {
	run.UpdatedAt = time.Now()

	query := `
		UPDATE simulation_runs SET
			updated_at = $2, status = $3, started_at = $4, finished_at = $5,
			packets_sent = $6, packets_delivered = $7, packets_lost_collision = $8,
			packets_lost_no_signal = $9, pdr = $10, energy_j = $11, avg_delay_s = $12
		WHERE id = $1`

	res, err := s.getDB().ExecContext(ctx, query,
		run.ID, run.UpdatedAt, run.Status, run.StartedAt, run.FinishedAt,
		run.PacketsSent, run.PacketsDelivered, run.PacketsLostCollision,
		run.PacketsLostNoSignal, run.PDR, run.EnergyJ, run.AvgDelayS,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRuns returns runs ordered newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.SimulationRun, int64, error) {
	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM simulation_runs").Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, created_at, updated_at, seed, status, config,
			started_at, finished_at, packets_sent, packets_delivered,
			packets_lost_collision, packets_lost_no_signal, pdr, energy_j, avg_delay_s
		FROM simulation_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*models.SimulationRun
	for rows.Next() {
		run := &models.SimulationRun{}
		if err := rows.Scan(
			&run.ID, &run.CreatedAt, &run.UpdatedAt, &run.Seed, &run.Status, &run.Config,
			&run.StartedAt, &run.FinishedAt, &run.PacketsSent, &run.PacketsDelivered,
			&run.PacketsLostCollision, &run.PacketsLostNoSignal, &run.PDR, &run.EnergyJ, &run.AvgDelayS,
		); err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, count, rows.Err()
}

// AppendEventRecords bulk-inserts a batch of a run's event-log rows in
// one statement, mirroring how the simulator hands them over: a slice
// at a time rather than row by row.
func (s *PostgresStore) AppendEventRecords(ctx context.Context, runID uuid.UUID, records []models.EventRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO event_records (
		run_id, event_id, node_id, initial_x, initial_y, final_x, final_y,
		initial_sf, final_sf, initial_tx_power, final_tx_power,
		start_time, end_time, energy_j, result, gateway_id
	) VALUES `

	args := make([]interface{}, 0, len(records)*16)
	for i, r := range records {
		base := i * 16
		query += fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
			base+9, base+10, base+11, base+12, base+13, base+14, base+15, base+16)
		if i != len(records)-1 {
			query += ","
		}
		args = append(args,
			runID, r.EventID, r.NodeID, r.InitialX, r.InitialY, r.FinalX, r.FinalY,
			r.InitialSF, r.FinalSF, r.InitialTxPower, r.FinalTxPower,
			r.StartTime, r.EndTime, r.EnergyJ, r.Result, r.GatewayID,
		)
	}

	_, err := s.getDB().ExecContext(ctx, query, args...)
	return err
}

// ListEventRecords returns a run's event log ordered by event_id.
func (s *PostgresStore) ListEventRecords(ctx context.Context, runID uuid.UUID, limit, offset int) ([]models.EventRecord, int64, error) {
	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM event_records WHERE run_id = $1", runID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT run_id, event_id, node_id, initial_x, initial_y, final_x, final_y,
			initial_sf, final_sf, initial_tx_power, final_tx_power,
			start_time, end_time, energy_j, result, gateway_id
		FROM event_records WHERE run_id = $1 ORDER BY event_id ASC LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, runID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []models.EventRecord
	for rows.Next() {
		var r models.EventRecord
		if err := rows.Scan(
			&r.RunID, &r.EventID, &r.NodeID, &r.InitialX, &r.InitialY, &r.FinalX, &r.FinalY,
			&r.InitialSF, &r.FinalSF, &r.InitialTxPower, &r.FinalTxPower,
			&r.StartTime, &r.EndTime, &r.EnergyJ, &r.Result, &r.GatewayID,
		); err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	return records, count, rows.Err()
}
