package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s) ", a.userName)
}

// Root reads "<tool> key=value ..." lines until EOF or exit.
func (a *App) Root(ctx context.Context, scanner *bufio.Scanner) {

	fmt.Fprintln(a.out, "ledgerctl (type 'help' for commands)")

	for {
		fmt.Fprintf(a.out, "ledger %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(a.out, "Usage: <tool> key=value ... | logout | exit")
			fmt.Fprintln(a.out, "Values starting with [ or { are read as JSON.")
		case "logout":
			a.client.SetAccessToken("")
			a.userName = ""
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			if err := a.Exec(ctx, cmd, args); err != nil && !errors.Is(err, errToolFailed) {
				fmt.Fprintln(a.out, "error:", err)
			}
		}
	}
}
