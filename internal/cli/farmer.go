package cli

import (
	"context"
	"fmt"
)

// farmers and farmerRecords serve the agronomist review workflow: browsing
// the farmers assigned to the logged-in reviewer and reading their records.
// Both need connectivity; there is no offline copy of other people's data.

func (a *App) farmers(ctx context.Context) {
	if !a.sess.Online() {
		fmt.Fprintln(a.out, "Reviewing farmers requires a connection.")
		return
	}

	farmers, err := a.gw.ListFarmers(ctx, a.sess.Owner())
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return
	}
	if len(farmers) == 0 {
		fmt.Fprintln(a.out, "No farmers assigned.")
		return
	}
	for _, f := range farmers {
		fmt.Fprintf(a.out, "%s  %s (%s), %d record(s)\n", f.ID, f.Name, f.Location, f.RecordCount)
	}
}

func (a *App) farmerRecords(ctx context.Context, farmerID string) {
	if !a.sess.Online() {
		fmt.Fprintln(a.out, "Reviewing farmer records requires a connection.")
		return
	}

	records, err := a.gw.ListFarmerRecords(ctx, a.sess.Owner(), farmerID)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No records for farmer", farmerID)
		return
	}
	for _, r := range records {
		fmt.Fprintln(a.out, formatRecord(r))
	}
}
