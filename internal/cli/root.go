package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if owner := a.sess.Owner(); owner != "" {
		s = owner + " "
	}
	if a.sess.Online() {
		s += "online"
	} else {
		s += "offline"
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Root(ctx context.Context) {

	fmt.Fprintln(a.out, "Welcome to FieldSync CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	a.login(ctx)

	for {
		fmt.Fprintf(a.out, "fieldsync %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(a.out, "Available commands: list, refresh, add, show, status, action, delete, delaction, sync, pending, lastsync, farmers, records, login, logout, exit")

		case "login":
			a.login(ctx)
		case "logout":
			a.logout(ctx)
		case "list":
			a.list(ctx, false)
		case "refresh":
			a.list(ctx, true)
		case "add":
			a.add(ctx)
		case "show":
			a.show(ctx, args)
		case "status":
			a.updateStatus(ctx)
		case "action":
			a.addAction(ctx)
		case "delete":
			a.delete(ctx)
		case "delaction":
			a.deleteAction(ctx)
		case "sync":
			a.sync(ctx)
		case "pending":
			a.pending(ctx)
		case "lastsync":
			a.lastSync(ctx)
		case "farmers":
			a.farmers(ctx)
		case "records":
			if len(args) == 0 {
				fmt.Fprintln(a.out, "Usage: records <farmerId>")
				continue
			}
			a.farmerRecords(ctx, args[0])
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
	}

}

func (a *App) login(ctx context.Context) {
	owner, err := GetSimpleText(a.reader, "Enter your owner id", a.out)
	if err != nil || owner == "" {
		fmt.Fprintln(a.out, "Working without an identified owner; records cannot be created or synced.")
		return
	}
	a.sess.Init(owner)
}

func (a *App) logout(ctx context.Context) {
	a.sess.Teardown()
	fmt.Fprintln(a.out, "Logged out.")
}
