// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/loomchat/loom-tui/internal/api"
)

const loginTimeout = 30 * time.Second

// HandleLogin prompts for credentials, authenticates, and stores the token.
func HandleLogin(deps Deps, args Args) error {
	if cred, ok := deps.Store.Credential(); ok && !args.Quiet {
		fmt.Printf("%s signed in as %s; logging in again replaces the stored token\n",
			infoStyle.Render("[Note]"), cred.Username)
	}

	username, err := promptLine("Username: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()
	if err := deps.Coord.Login(ctx, username, password); err != nil {
		var authErr *api.AuthError
		if errors.As(err, &authErr) {
			return fmt.Errorf("login rejected: %s", authErr.Detail)
		}
		return err
	}

	fmt.Printf("%s signed in as %s\n", okStyle.Render("[OK]"), username)
	return nil
}

// HandleLogout clears the stored credential.
func HandleLogout(deps Deps, args Args) error {
	if _, ok := deps.Store.Credential(); !ok {
		if !args.Quiet {
			fmt.Println(infoStyle.Render("not signed in"))
		}
		return nil
	}
	if err := deps.Coord.Logout(); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("[OK]") + " signed out")
	return nil
}

// promptLine reads one line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(promptStyle.Render(prompt))
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echoing when stdin is a terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(promptStyle.Render(prompt))
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return promptPipedPassword()
}

// promptPipedPassword covers non-interactive stdin, mainly scripts and tests.
func promptPipedPassword() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
