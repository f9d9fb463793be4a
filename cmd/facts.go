package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/openkiosk/priceboard/internal/model"
)

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Inspect stored price facts",
}

var factsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest price facts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")

		facts, err := st.LatestPriceFacts(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "facts list")
		}

		if len(facts) == 0 {
			fmt.Fprintln(os.Stderr, "No facts found.")
			return nil
		}

		formatFactsList(os.Stdout, facts)
		return nil
	},
}

func init() {
	factsListCmd.Flags().Int("limit", 5, "max number of facts to display")

	factsCmd.AddCommand(factsListCmd)
	rootCmd.AddCommand(factsCmd)
}

// formatFactsList writes a tabular list of facts to w.
func formatFactsList(out io.Writer, facts []model.PriceFact) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tORDER\tFIGURE\tDESCRIPTION\tQUOTE\tCAPTURED")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t-----------\t-----\t--------")

	for _, f := range facts {
		figure := "n/a"
		if !math.IsNaN(f.Figure) {
			figure = fmt.Sprintf("%.2f", f.Figure)
		}

		quote := f.Quote
		if len(quote) > 30 {
			quote = quote[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
			f.ID,
			f.OrderID,
			figure,
			f.Description,
			quote,
			f.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
