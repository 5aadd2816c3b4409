package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/veritas_shop/internal/plans"
)

func plansCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List the membership plans offered at checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := plans.Default()
			if err != nil {
				return err
			}
			return printPlans(cmd.OutOrStdout(), t, asJSON)
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func printPlans(w io.Writer, t *plans.Table, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t.Plans)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tNAME\tPRICE")
	for _, p := range t.Plans {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\n", p.Tier, p.DisplayName, p.Price.StringFixed(2), strings.ToUpper(t.Currency))
	}
	return tw.Flush()
}
