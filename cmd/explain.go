package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"propscore/internal/server"

	"github.com/spf13/cobra"
)

type ExplainArgs struct {
	Root        *RootArgs
	ID          string
	Stakeholder string
}

func NewExplainArgs(root *RootArgs) *ExplainArgs {
	return &ExplainArgs{Root: root}
}

func (ea *ExplainArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ea.ID, "id", "", "identifier of the record to explain")
	cmd.Flags().StringVar(&ea.Stakeholder, "stakeholder", "", "explain for this stakeholder only")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
}

func NewExplainCmd(root *RootArgs) *cobra.Command {
	args := NewExplainArgs(root)

	cmd := &cobra.Command{
		Use:     "explain",
		Short:   "Print how every metric of a record was scored",
		Example: `  propscore explain --id 12 --stakeholder wife`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplain(cmd, args)
		},
	}
	args.AddFlags(cmd)

	return cmd
}

func runExplain(cmd *cobra.Command, args *ExplainArgs) error {
	a, err := newApp(args.Root.Config())
	if err != nil {
		slog.Error("Unable to initialize scoring", "error", err)
		return err
	}

	records, err := a.records(cmd.Context())
	if err != nil {
		slog.Error("Unable to load records", "error", err)
		return err
	}

	rec, found := find(records, args.ID)
	if !found {
		return fmt.Errorf("record not found: %s", args.ID)
	}

	profiles := a.profiles
	if args.Stakeholder != "" {
		profiles = nil
		for _, p := range a.profiles {
			if p.Stakeholder == args.Stakeholder {
				profiles = append(profiles, p)
			}
		}
		if len(profiles) == 0 {
			return fmt.Errorf("unknown stakeholder: %s", args.Stakeholder)
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(server.Explain(a.engine, rec, profiles))
}
