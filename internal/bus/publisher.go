package bus

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/rot226/lorasim/pkg/simcore"
)

// Publisher mirrors a run's event log and metrics snapshots onto NATS
// subjects scoped to the run, so dashboards and CLIs can follow a
// simulation live instead of polling the REST API.
type Publisher struct {
	nc    *nats.Conn
	runID string
}

// NewPublisher builds a Publisher bound to the given run ID. nc may be
// nil, in which case Publish calls are silently skipped — this lets a
// simulation run locally without a NATS server when one isn't wired up.
func NewPublisher(nc *nats.Conn, runID string) *Publisher {
	return &Publisher{nc: nc, runID: runID}
}

// OnEvent implements simcore.Observer: publishes one event-log row to
// sim.<run-id>.event as it is produced.
func (p *Publisher) OnEvent(rec simcore.EventRecord) {
	if p.nc == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Msg("marshal event record for publish")
		return
	}
	subject := fmt.Sprintf("sim.%s.event", p.runID)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("publish event record")
	}
}

// PublishMetrics pushes one metrics snapshot to sim.<run-id>.metrics;
// cmd/simrunner calls it once, with the final metrics after Run returns.
func (p *Publisher) PublishMetrics(m simcore.Metrics) {
	if p.nc == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Msg("marshal metrics for publish")
		return
	}
	subject := fmt.Sprintf("sim.%s.metrics", p.runID)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("publish metrics")
	}
}
