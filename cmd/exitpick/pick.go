package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MakerMaker19/exitpick/pkg/exitnode"
)

func newPickCmd(a *app) *cobra.Command {
	var (
		field  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose a country, city or hostname interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := exitnode.ParseField(field)
			if err != nil {
				return err
			}
			sel, err := a.selector(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			nodes, err := sel.Nodes(ctx)
			if err != nil {
				return err
			}

			value, err := a.deps.runPicker(nodes, f, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			a.log.Debug("picked value", zap.String("field", string(f)), zap.String("value", value))

			node, err := sel.Choose(nodes, f, value)
			if err != nil {
				return err
			}
			msg, err := sel.Apply(ctx, node, dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "country", "field to choose by: country, city or hostname")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show selected node without activating it")
	return cmd
}
