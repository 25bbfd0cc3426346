package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agrotrack/fieldsync/internal/common"
	"github.com/agrotrack/fieldsync/internal/model"
)

func (a *App) list(ctx context.Context, forceRefresh bool) {
	owner := a.sess.Owner()
	if owner == "" {
		fmt.Fprintln(a.out, "Log in first.")
		return
	}

	records := a.records.ListMerged(ctx, owner, forceRefresh)
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No records.")
		return
	}
	for _, r := range records {
		fmt.Fprintln(a.out, formatRecord(r))
	}
}

func formatRecord(r model.Record) string {
	marker := ""
	if !r.Synced {
		marker = " *pending"
	}
	status := r.Status
	if status == "" {
		status = "-"
	}
	return fmt.Sprintf("%s  %s (%s) status=%s [%s]%s", r.ID, r.Crop, r.Location, status, r.Provenance, marker)
}

func (a *App) add(ctx context.Context) {
	crop, err := GetSimpleText(a.reader, "Enter crop", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	location, err := GetSimpleText(a.reader, "Enter location", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	extra, err := GetFields(a.reader, a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}

	rec, err := a.records.Create(ctx, model.Record{Crop: crop, Location: location, Extra: extra})
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return
	}
	fmt.Fprintf(a.out, "Created %s\n", rec.ID)
}

// find locates a record in the current merged view by id.
func (a *App) find(ctx context.Context, id string) (model.Record, bool) {
	for _, r := range a.records.ListMerged(ctx, a.sess.Owner(), false) {
		if r.ID == id {
			return r, true
		}
	}
	return model.Record{}, false
}

func (a *App) show(ctx context.Context, args []string) {
	var id string
	var err error
	if len(args) > 0 {
		id = args[0]
	} else {
		id, err = GetSimpleText(a.reader, "Enter record id to show", a.out)
		if err != nil {
			fmt.Fprintf(a.out, "error: %v\n", err)
			return
		}
	}

	rec, ok := a.find(ctx, id)
	if !ok {
		fmt.Fprintln(a.out, "Record not found:", id)
		return
	}

	fmt.Fprintln(a.out, formatRecord(rec))
	if rec.Notes != "" {
		fmt.Fprintln(a.out, "Notes:", rec.Notes)
	}
	for k, v := range rec.Extra {
		fmt.Fprintf(a.out, "%s: %s\n", k, v)
	}
	for _, act := range rec.History {
		fmt.Fprintf(a.out, "  %s  %s  %s", act.Timestamp.Local().Format("2006-01-02 15:04"), act.Type, act.Description)
		if len(act.Fields) > 0 {
			var kv []string
			for k, v := range act.Fields {
				kv = append(kv, k+"="+v)
			}
			fmt.Fprintf(a.out, " (%s)", strings.Join(kv, ", "))
		}
		fmt.Fprintf(a.out, "  [%s]\n", act.ID)
	}
}

func (a *App) updateStatus(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Enter record id", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	rec, ok := a.find(ctx, id)
	if !ok {
		fmt.Fprintln(a.out, "Record not found:", id)
		return
	}

	newStatus, err := GetSimpleText(a.reader, "Enter new status", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}

	err = a.records.UpdateStatus(ctx, rec, newStatus)
	if err == nil {
		fmt.Fprintln(a.out, "Status updated.")
		return
	}
	fmt.Fprintf(a.out, "Error: %s\n", err.Error())

	// the change can still be kept on-device and pushed with the next sync
	answer, err := GetSimpleText(a.reader, "Apply the change locally instead? (y/n)", a.out)
	if err != nil || !strings.EqualFold(answer, "y") {
		return
	}
	if err := a.records.ApplyStatusLocally(ctx, rec, newStatus); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return
	}
	fmt.Fprintln(a.out, "Status applied locally; run 'sync' to push it.")
}

func (a *App) addAction(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Enter record id", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	rec, ok := a.find(ctx, id)
	if !ok {
		fmt.Fprintln(a.out, "Record not found:", id)
		return
	}

	actionType, err := GetSimpleText(a.reader, "Enter action type (sowing, irrigation, fertilization, treatment, harvest, recommendation)", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	t := model.ActionType(actionType)
	if !t.Known() {
		fmt.Fprintln(a.out, "Unknown action type:", actionType)
		return
	}

	description, err := GetSimpleText(a.reader, "Enter description (empty for the default)", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	fields, err := GetFields(a.reader, a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}

	if err := a.records.AddAction(ctx, rec, model.NewAction(t, description, fields)); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return
	}
	fmt.Fprintln(a.out, "Action recorded.")
}

func (a *App) delete(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Enter record id to delete", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	rec, ok := a.find(ctx, id)
	if !ok {
		fmt.Fprintln(a.out, "Record not found:", id)
		return
	}

	err = a.records.Delete(ctx, rec)
	if err == nil {
		fmt.Fprintln(a.out, "Record deleted.")
		return
	}
	fmt.Fprintf(a.out, "Error: %s\n", err.Error())

	if model.IsLocalID(rec.ID) || errors.Is(err, common.ErrNotFound) {
		return
	}

	answer, err := GetSimpleText(a.reader, "Mark as deleted locally instead? (y/n)", a.out)
	if err != nil || !strings.EqualFold(answer, "y") {
		return
	}
	if err := a.records.SoftDeleteLocally(ctx, rec); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return
	}
	fmt.Fprintln(a.out, "Record hidden; the deletion is replayed on the next sync.")
}

func (a *App) deleteAction(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Enter record id", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	rec, ok := a.find(ctx, id)
	if !ok {
		fmt.Fprintln(a.out, "Record not found:", id)
		return
	}

	actionID, err := GetSimpleText(a.reader, "Enter action id to delete", a.out)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}

	if err := a.records.DeleteAction(ctx, rec, actionID); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return
	}
	fmt.Fprintln(a.out, "Action deleted.")
}
