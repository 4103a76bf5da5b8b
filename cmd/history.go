package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jjenkins/regwatch/internal/model"
)

var (
	historyAgency string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved reports",
	Long:  `History lists reports saved with "compare --save" or by the scheduler, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{persist: true})
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.reports.GetRecent(cmd.Context(), strings.ToUpper(historyAgency), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No reports saved yet.")
			return nil
		}

		rows := make([][]string, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, []string{
				s.ID.String(),
				s.CreatedAt.Format("2006-01-02 15:04"),
				s.Agency,
				s.CurrentStart.Format(model.DateLayout) + " to " + s.CurrentEnd.Format(model.DateLayout),
				strconv.Itoa(s.CurrentTotal()),
				strconv.Itoa(s.PreviousTotal()),
				fmt.Sprintf("%+d", s.NetChange),
				strconv.Itoa(s.NewCount),
			})
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"ID", "Generated", "Agency", "Current window", "Current", "Previous", "Net", "New"})
		if err := table.Bulk(rows); err != nil {
			return err
		}
		return table.Render()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&historyAgency, "agency", "a", "", "Only show reports for this agency alias")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of reports to show")
}
