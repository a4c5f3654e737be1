// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewVariants(t *testing.T) {
	dark := New("dark")
	if !dark.IsDark {
		t.Error("dark variant must force IsDark")
	}
	if dark.GlamourStyle() != "dark" {
		t.Errorf("GlamourStyle = %q", dark.GlamourStyle())
	}

	light := New("light")
	if light.IsDark {
		t.Error("light variant must force light")
	}
	if light.GlamourStyle() != "light" {
		t.Errorf("GlamourStyle = %q", light.GlamourStyle())
	}
}

func TestStylesRender(t *testing.T) {
	th := New("dark")
	if th.Header.Render("loom") == "" {
		t.Error("Header renders empty")
	}
	if th.ErrorBox.Render("err") == "" {
		t.Error("ErrorBox renders empty")
	}
}
