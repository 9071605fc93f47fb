package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rot226/lorasim/internal/bus"
	"github.com/rot226/lorasim/internal/config"
	"github.com/rot226/lorasim/internal/models"
	"github.com/rot226/lorasim/internal/storage"
	"github.com/rot226/lorasim/pkg/simcore"
)

func main() {
	var configPath = flag.String("config", "config/simrunner.yml", "configuration file path")
	var showConfig = flag.Bool("show-config", false, "print the resolved configuration and exit")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", *configPath).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if *showConfig {
		log.Info().Msg(cfg.PrintSummary())
		return
	}

	simCfg := simcore.Config{
		Seed:                cfg.Simulation.Seed,
		NumNodes:            cfg.Simulation.NumNodes,
		NumGateways:         cfg.Simulation.NumGateways,
		AreaSizeM:           cfg.Simulation.AreaSizeM,
		Mode:                simulationModeFromString(cfg.Simulation.Mode),
		PacketIntervalS:     cfg.Simulation.PacketIntervalS,
		DutyCycle:           cfg.Simulation.DutyCycle,
		MobilityEnabled:     cfg.Simulation.MobilityEnabled,
		MobilityIntervalS:   cfg.Simulation.MobilityIntervalS,
		NodeADREnabled:      cfg.Simulation.NodeADREnabled,
		ServerADREnabled:    cfg.Simulation.ServerADREnabled,
		PacketsToSend:       cfg.Simulation.PacketsToSend,
		ShadowingStdDB:      cfg.Simulation.ShadowingStdDB,
		HasShadowingStdDB:   true,
		SimulationDurationS: cfg.Simulation.SimulationDurationS,
	}

	sim, err := simcore.NewSimulator(simCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build simulator")
	}

	store, err := storage.NewPostgresStore(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	runID := uuid.New()
	run := &models.SimulationRun{
		BaseModel: models.BaseModel{ID: runID},
		Seed:      cfg.Simulation.Seed,
		Status:    models.RunStatusRunning,
		Config:    models.Variables{"mode": cfg.Simulation.Mode, "num_nodes": cfg.Simulation.NumNodes},
	}
	startedAt := time.Now().Unix()
	run.StartedAt = &startedAt

	ctx := context.Background()
	if err := store.CreateRun(ctx, run); err != nil {
		log.Fatal().Err(err).Msg("failed to record run")
	}

	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.Name("lorasim-simrunner"),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without live mirroring")
		} else {
			defer nc.Close()
		}
	}
	publisher := bus.NewPublisher(nc, runID.String())
	sim.SetObserver(publisher)

	log.Info().Str("run_id", runID.String()).Msg("starting simulation run")
	steps := sim.Run(0)
	log.Info().Int("steps", steps).Msg("simulation run complete")

	metrics := sim.Metrics()
	publisher.PublishMetrics(metrics)

	finishedAt := time.Now().Unix()
	run.Status = models.RunStatusDone
	run.FinishedAt = &finishedAt
	run.PacketsSent = metrics.PacketsSent
	run.PacketsDelivered = metrics.PacketsDelivered
	run.PacketsLostCollision = metrics.PacketsLostCollision
	run.PacketsLostNoSignal = metrics.PacketsLostNoSignal
	run.PDR = metrics.PDR
	run.EnergyJ = metrics.EnergyJ
	run.AvgDelayS = metrics.AvgDelayS

	if err := store.UpdateRun(ctx, run); err != nil {
		log.Error().Err(err).Msg("failed to persist final run metrics")
	}

	records := sim.EventRecords()
	storageRecords := make([]models.EventRecord, 0, len(records))
	for _, r := range records {
		sr := models.EventRecord{
			RunID:          runID,
			EventID:        r.EventID,
			NodeID:         r.NodeID,
			InitialX:       r.InitialX,
			InitialY:       r.InitialY,
			FinalX:         r.FinalX,
			FinalY:         r.FinalY,
			InitialSF:      r.InitialSF,
			FinalSF:        r.FinalSF,
			InitialTxPower: r.InitialTxPower,
			FinalTxPower:   r.FinalTxPower,
			StartTime:      r.StartTime,
			EnergyJ:        r.EnergyJ,
			Result:         string(r.Result),
		}
		if r.HasEndTime {
			endTime := r.EndTime
			sr.EndTime = &endTime
		}
		if r.HasGatewayID {
			gwID := r.GatewayID
			sr.GatewayID = &gwID
		}
		storageRecords = append(storageRecords, sr)
	}
	if err := store.AppendEventRecords(ctx, runID, storageRecords); err != nil {
		log.Error().Err(err).Msg("failed to persist event log")
	}

	log.Info().
		Int("packets_sent", metrics.PacketsSent).
		Int("packets_delivered", metrics.PacketsDelivered).
		Float64("pdr", metrics.PDR).
		Msg("run summary")
}

func simulationModeFromString(mode string) simcore.TransmissionMode {
	if mode == "random" {
		return simcore.ModeRandom
	}
	return simcore.ModePeriodic
}
