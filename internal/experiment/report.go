package experiment

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/limiquantix/placesim/internal/domain"
)

// Render writes the run as an aligned text table.
func Render(w io.Writer, run *domain.ExperimentRun) error {
	if _, err := fmt.Fprintf(w, "=== %s (%s) ===\nrun %s  %s\n",
		run.Name, run.Kind, run.ID, run.CreatedAt.Format("2006-01-02 15:04:05 MST")); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "LABEL\tALGORITHM\tHOSTS\tVMS\tTOPOLOGY\tPERCENTILE\tTRAFFIC COST\tACTIVE HOSTS\tUNPLACED\tDELTA %\t")
	for _, row := range run.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%.2f\t%.2f\t%d\t%d\t%.2f\t\n",
			row.Label,
			row.Algorithm,
			row.Hosts,
			row.VMs,
			row.Topology,
			row.Percentile,
			row.TrafficCost,
			row.ActiveHosts,
			row.Unplaced,
			row.DeltaPercent,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w)
	return err
}
