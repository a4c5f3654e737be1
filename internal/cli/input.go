// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/loomchat/loom-tui/internal/config"
)

// ChatInput provides line editing and input history for the chat REPL.
type ChatInput struct {
	line        *liner.State
	historyFile string
}

// NewChatInput creates a ChatInput. When persist is false no history file is
// read or written; the session still has in-memory history.
func NewChatInput(persist bool) *ChatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	in := &ChatInput{line: line}
	if persist {
		if dir, err := config.ConfigDir(); err == nil {
			in.historyFile = filepath.Join(dir, "history")
			in.loadHistory()
		}
	}
	return in
}

func (c *ChatInput) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine reads one line with history navigation. Non-empty input is added
// to the history.
func (c *ChatInput) ReadLine(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists the history file with owner-only permissions.
func (c *ChatInput) saveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatInput) Close() {
	c.saveHistory()
	c.line.Close()
}
