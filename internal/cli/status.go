// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
)

// HandleStatus prints a one-shot snapshot of the service metrics.
func HandleStatus(deps Deps, args Args) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	metrics, err := deps.Client.Metrics(ctx)
	if err != nil {
		return err
	}

	fmt.Println(welcomeStyle.Render("loom status"))
	fmt.Printf("  %s %s\n", infoStyle.Render("Server:"), deps.Client.BaseURL())

	if cred, ok := deps.Store.Credential(); ok {
		fmt.Printf("  %s %s\n", infoStyle.Render("Signed in:"), cred.Username)
	} else {
		fmt.Printf("  %s %s\n", infoStyle.Render("Signed in:"), warningStyle.Render("no"))
	}

	if metrics.GPU != nil {
		fmt.Printf("  %s %.0f%% utilization, %.0f/%.0f MB\n",
			infoStyle.Render("GPU:"),
			metrics.GPU.Utilization,
			metrics.GPU.MemoryUsed,
			metrics.GPU.MemoryTotal)
	} else {
		fmt.Printf("  %s %s\n", infoStyle.Render("GPU:"), infoStyle.Render("none"))
	}
	fmt.Printf("  %s %.0f/%.0f MB\n",
		infoStyle.Render("Memory:"),
		metrics.Memory.Used,
		metrics.Memory.Total)
	if metrics.InferenceTimeMs != nil {
		fmt.Printf("  %s %.0f ms\n",
			infoStyle.Render("Last inference:"),
			*metrics.InferenceTimeMs)
	}
	return nil
}
