package main

import (
	"encoding/json"
	"log/slog"
	"propscore/internal/server"

	"github.com/spf13/cobra"
)

func NewRulesCmd(root *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the indexed rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root.Config())
			if err != nil {
				slog.Error("Unable to initialize scoring", "error", err)
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(server.RuleDump(a.engine.Rules()))
		},
	}
}
