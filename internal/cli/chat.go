// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loomchat/loom-tui/internal/api"
)

// HandleChat runs the interactive chat REPL against the active session.
func HandleChat(deps Deps, args Args) error {
	if _, ok := deps.Store.Credential(); !ok {
		return errors.New("not signed in; run: loom login")
	}

	ctx := context.Background()
	if err := deps.Coord.Refresh(ctx); err != nil {
		return fmt.Errorf("fetching sessions: %w", err)
	}
	if args.Session != "" {
		if err := deps.Coord.Switch(ctx, args.Session); err != nil {
			return fmt.Errorf("switching to session %s: %w", args.Session, err)
		}
	}
	if _, ok := deps.Coord.ActiveSession(); !ok {
		if _, err := deps.Coord.Create(ctx); err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
	}

	input := NewChatInput(deps.Config.CLI.HistoryEnabled)
	defer input.Close()

	if !args.Quiet {
		printWelcome(deps)
	}

	// Ctrl+C during generation cancels the in-flight stream; the REPL keeps
	// running. Ctrl+C at the prompt surfaces as liner.ErrPromptAborted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			deps.Coord.CancelStream()
		}
	}()

	for {
		line, err := input.ReadLine(promptStyle.Render("you> "))
		if err != nil {
			// Prompt abort (Ctrl+C) and EOF (Ctrl+D) both end the session.
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := handleChatCommand(deps, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		if err := streamExchange(deps, line); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

// streamExchange sends one prompt and prints the response as it arrives.
func streamExchange(deps Deps, prompt string) error {
	updates, err := deps.Coord.Send(context.Background(), prompt)
	if err != nil {
		return err
	}

	fmt.Println()
	var final error
	for u := range updates {
		if u.Delta != "" {
			fmt.Print(u.Delta)
		}
		if u.Done {
			final = u.Err
		}
	}
	fmt.Println()
	if final != nil {
		return describeStreamErr(final)
	}
	fmt.Println()
	return nil
}

// describeStreamErr maps terminal stream errors to REPL-friendly messages.
func describeStreamErr(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return errors.New("generation cancelled")
	case errors.Is(err, api.ErrRateLimited):
		var rl *api.RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			return fmt.Errorf("rate limited; retry in %s", rl.RetryAfter)
		}
		return errors.New("rate limited; try again shortly")
	default:
		return err
	}
}

// handleChatCommand processes slash commands. Returns false to exit.
func handleChatCommand(deps Deps, line string) (bool, error) {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	rest := parts[1:]

	switch cmd {
	case "/help", "/h", "/?":
		printChatHelp()
		return true, nil

	case "/sessions", "/ls":
		return true, listSessions(context.Background(), deps, Args{})

	case "/new", "/n":
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := deps.Coord.Create(ctx)
		if err != nil {
			return true, err
		}
		fmt.Printf("%s switched to new session %s\n", okStyle.Render("[OK]"), id)
		return true, nil

	case "/switch", "/sw":
		if len(rest) == 0 {
			return true, errors.New("usage: /switch <id>")
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := deps.Coord.Switch(ctx, rest[0]); err != nil {
			return true, err
		}
		fmt.Printf("%s switched to session %s\n", okStyle.Render("[OK]"), rest[0])
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help)", cmd)
	}
}

func printWelcome(deps Deps) {
	active, _ := deps.Coord.ActiveSession()
	fmt.Println()
	fmt.Println(welcomeStyle.Render("loom chat"))
	fmt.Printf("%s %s\n", infoStyle.Render("Server:"), deps.Client.BaseURL())
	fmt.Printf("%s %s\n", infoStyle.Render("Session:"), active)
	fmt.Println(infoStyle.Render("Type a message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

func printChatHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/sessions, /ls", "List sessions"},
		{"/new, /n", "Create and switch to a new session"},
		{"/switch <id>", "Switch to a session"},
		{"/quit, /q", "Exit chat"},
	}

	fmt.Println()
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			okStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			infoStyle.Render(c.desc))
	}
	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels the current generation, Ctrl+D exits"))
	fmt.Println()
}
