package view

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteText prints the board for a terminal: KPIs, one line per job and
// the department summary.
func WriteText(w io.Writer, b Board) error {
	fmt.Fprintf(w, "Open jobs: %d    Overdue (>= %d min): %d    Updated: %s\n\n",
		b.KPIs.Open, b.OverdueMinutes, b.KPIs.Overdue, b.UpdatedLabel)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if b.Empty {
		fmt.Fprintln(tw, "No open jobs")
	} else {
		fmt.Fprintln(tw, "ID\tRISK\tDEPARTMENT\tPOINT\tCONTROL\tOPENED BY\tSTART\tELAPSED\t")
		for _, c := range b.Cards {
			elapsed := c.Elapsed
			if c.Overdue {
				elapsed += " OVERDUE"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				c.ID, c.RiskLabel, c.Department, c.Point, c.Control, c.Requester, c.StartTime, elapsed)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPARTMENT\tCONFINED\tHEIGHT\t")
	for _, row := range b.Summary {
		fmt.Fprintf(tw, "%s\t%d\t%d\t\n", row.Department, row.Confined, row.Height)
	}
	return tw.Flush()
}
