package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MakerMaker19/exitpick/pkg/exitnode"
)

func newValuesCmd(a *app) *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:   "values",
		Short: "List the distinct countries, cities or hostnames on offer",
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
			nodes, err := sel.Nodes(cmd.Context())
			if err != nil {
				return err
			}
			for _, v := range exitnode.UniqueValues(nodes, f) {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "country", "field to list: country, city or hostname")
	return cmd
}
