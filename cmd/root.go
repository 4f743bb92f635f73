package main

import (
	"log/slog"
	"propscore/internal/configuration"

	"github.com/spf13/cobra"
)

const (
	cmdName = "propscore"
	cmdDesc = `Rule-based scoring of real-estate listings for several stakeholders.`
)

// RootArgs holds the flags shared by every command and the configuration
// they load.
type RootArgs struct {
	ConfigPath string

	config *configuration.AppConfig
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&ra.ConfigPath, "config", "/etc/propscore/config.yaml", "configuration file")
}

// Config returns the configuration loaded before the command ran.
func (ra *RootArgs) Config() *configuration.AppConfig {
	return ra.config
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig(args),
	}
	args.AddFlags(cmd)

	cmd.AddCommand(
		NewScoreCmd(args),
		NewExplainCmd(args),
		NewRulesCmd(args),
		NewServeCmd(args),
	)

	return cmd
}

func loadConfig(args *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(_ *cobra.Command, _ []string) error {
		config, err := configuration.LoadConfig(args.ConfigPath)
		if err != nil {
			slog.Error("Unable to load configuration", "error", err)
			return err
		}
		prepareLogger(config.Logger.Level)
		args.config = config
		return nil
	}
}
