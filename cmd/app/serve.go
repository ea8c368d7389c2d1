package main

import (
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/spf13/cobra"
)

func newServeCmd(log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(log)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}
