package main

import (
	"github.com/adammck/rangecache/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type globals struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:          "rangecache",
		Short:        "Disk-backed cache for byte ranges of remote objects",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}

			g.cfg = cfg
			setupLogging(cfg.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to config file (YAML)")

	cmd.AddCommand(
		newServeCmd(g),
		newStatsCmd(g),
		newFetchCmd(g),
		newEvictCmd(g),
		newRmCmd(g),
	)

	return cmd
}

func setupLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Invalid log level '%s', using info level", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
