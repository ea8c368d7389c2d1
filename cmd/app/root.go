package main

import (
	"github.com/DRSN-tech/imgshrink/internal/app"
	config "github.com/DRSN-tech/imgshrink/internal/cfg"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/spf13/cobra"
)

func newRootCmd(log logger.Logger) *cobra.Command {
	serve := newServeCmd(log)

	cmd := &cobra.Command{
		Use:           "imgshrink",
		Short:         "imgshrink compresses uploaded images and serves them for one-time download",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}

	cmd.AddCommand(serve, newSweepCmd(log))
	return cmd
}

// newApplication загружает конфигурацию из окружения и собирает приложение.
func newApplication(log logger.Logger) (*app.App, error) {
	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		return nil, err
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		return nil, err
	}

	return application, nil
}
