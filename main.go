// Package main is the ChatDraw application entrypoint.
package main

import (
	"context"

	"ChatDraw/internal/config"
	"ChatDraw/internal/log"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CLI command definitions.
var (
	logger logrus.FieldLogger = logrus.StandardLogger()

	v = config.New()

	cfgFile string
	envFile string

	rootCmd = &cobra.Command{
		Use:           "chatdraw",
		Short:         "Shared chat and drawing sessions on the local network.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnv(envFile); err != nil {
				return err
			}
			if err := config.ReadFile(v, cfgFile); err != nil {
				return err
			}
			log.SetLogger(v.GetString(config.KeyLogLevel))
			return nil
		},
	}
)

// bindFlags binds the named flags of cmd to viper keys. It runs when the command
// is chosen so commands sharing a key do not overwrite each other's binding.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return errors.Wrapf(err, "bind flag %s failed", flag)
		}
	}
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.StringVar(&envFile, "env-file", "", "env file to load (default .env if present)")
	flags.String("log-level", "info", "trace, debug, info, warn or error")
	flags.String("transport", "tcp", "tcp or websocket")
	flags.String("ws-path", "/ws", "websocket endpoint path")
	if err := bindFlags(v, flags, map[string]string{
		"log-level": config.KeyLogLevel,
		"transport": config.KeyTransport,
		"ws-path":   config.KeySocketPath,
	}); err != nil {
		logger.Fatalln(err)
	}

	rootCmd.AddCommand(
		serveCmd,
		joinCmd,
		snapshotCmd,
		discoverCmd,
	)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Fatal(errors.Wrap(err, "execute root command failed"))
	}
}
