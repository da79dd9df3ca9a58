package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/devinotele/pushsdk-go/devino"
	"github.com/devinotele/pushsdk-go/internal/common"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := common.LoadConfig("devino-demo")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := common.NewLogger(cfg.ServiceName)
	shutdown, err := common.SetupOTel(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}
	defer common.ShutdownTelemetry(context.Background(), shutdown)

	metricsSrv := common.StartMetricsServer(cfg.MetricsPort, logger)
	defer metricsSrv.Shutdown(context.Background())

	opts := []devino.Option{devino.WithLogger(logger)}
	if cfg.StorageDir != "" {
		opts = append(opts, devino.WithStorageDir(cfg.StorageDir))
	}
	client, err := devino.New(opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("build client")
	}
	defer client.Stop()

	err = client.Activate(devino.Configuration{
		Key:            cfg.APIKey,
		ApplicationID:  cfg.ApplicationID,
		APIHost:        cfg.APIHost,
		APIPort:        cfg.APIPort,
		GeoIntervalMin: cfg.GeoIntervalMin,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("activate sdk")
	}

	if err := client.RegisterToken([]byte("demo-device-token")); err != nil {
		logger.Error().Err(err).Msg("register token")
	}
	client.TrackAppLaunch()

	client.StartGeoUpdates(ctx, devino.LocationFunc(func(context.Context) (float64, float64, error) {
		// A fixed coordinate stands in for a real positioning source.
		return 55.7558, 37.6173, nil
	}))

	logger.Info().Msg("devino demo running")
	<-ctx.Done()

	client.TrackAppTerminated()
}
