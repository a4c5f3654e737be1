// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loomchat/loom-tui/internal/util"
)

const requestTimeout = 15 * time.Second

// HandleSessions dispatches the sessions subcommands.
func HandleSessions(deps Deps, args Args) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch args.Subcommand {
	case "", "list", "ls", "l":
		return listSessions(ctx, deps, args)

	case "new", "create":
		id, err := deps.Client.CreateSession(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s created session %s\n", okStyle.Render("[OK]"), id)
		return nil

	case "delete", "rm":
		if args.Target == "" {
			return errors.New("usage: loom sessions delete <id>")
		}
		if err := deps.Client.DeleteSession(ctx, args.Target); err != nil {
			return err
		}
		fmt.Printf("%s deleted session %s\n", okStyle.Render("[OK]"), args.Target)
		return nil

	default:
		return fmt.Errorf("unknown sessions subcommand: %s", args.Subcommand)
	}
}

func listSessions(ctx context.Context, deps Deps, args Args) error {
	sessions, err := deps.Client.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		if !args.Quiet {
			fmt.Println(infoStyle.Render("no sessions"))
		}
		return nil
	}

	for _, s := range sessions {
		preview := s.Preview
		if preview == "" {
			preview = "(empty)"
		}
		fmt.Printf("  %s  %s\n",
			promptStyle.Render(s.ID),
			infoStyle.Render(util.TruncateWidth(preview, 60)))
	}
	return nil
}
