package cli

import (
	"context"
	"fmt"
)

func (a *App) sync(ctx context.Context) {
	res, err := a.syncSvc.Run(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Sync aborted: %s\n", err.Error())
		return
	}

	fmt.Fprintf(a.out, "Sync finished: %d pushed, %d failed.\n", res.SuccessCount, res.ErrorCount)
	for _, e := range res.Errors {
		fmt.Fprintf(a.out, "  %s: %s\n", e.RecordID, e.Message)
	}
}

func (a *App) pending(ctx context.Context) {
	owner := a.sess.Owner()
	if owner == "" {
		fmt.Fprintln(a.out, "Log in first.")
		return
	}
	fmt.Fprintf(a.out, "%d record(s) awaiting sync.\n", a.records.PendingCount(ctx, owner))
}

func (a *App) lastSync(ctx context.Context) {
	fmt.Fprintln(a.out, a.syncSvc.LastSyncDescription(ctx))
}
