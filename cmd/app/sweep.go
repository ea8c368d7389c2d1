package main

import (
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/spf13/cobra"
)

func newSweepCmd(log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove artifacts older than ARTIFACT_TTL once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(log)
			if err != nil {
				return err
			}

			res, err := application.Sweep(cmd.Context())
			if err != nil {
				log.Errorf(err, "sweep failed")
				return err
			}

			log.Infof("Sweep finished: %d expired artifacts removed", res.Expired)
			return nil
		},
	}
}
