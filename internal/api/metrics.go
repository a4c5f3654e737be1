// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
)

// =============================================================================
// METRICS TYPES
// =============================================================================

// GPUMetrics describes the service host's GPU. Memory figures are megabytes.
type GPUMetrics struct {
	Name        string  `json:"name"`
	Utilization float64 `json:"utilization"`
	MemoryUsed  float64 `json:"memory_used"`
	MemoryTotal float64 `json:"memory_total"`
}

// MemoryMetrics describes system memory in megabytes.
type MemoryMetrics struct {
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// Metrics is one snapshot of service host health. GPU is nil when the host
// has no GPU; InferenceTimeMs is nil before the first generation.
type Metrics struct {
	GPU             *GPUMetrics   `json:"gpu"`
	Memory          MemoryMetrics `json:"memory"`
	InferenceTimeMs *float64      `json:"inference_time_ms"`
}

// =============================================================================
// METRICS OPERATION
// =============================================================================

// Metrics fetches a health snapshot from the service.
func (c *Client) Metrics(ctx context.Context) (*Metrics, error) {
	var m Metrics
	if err := c.doJSON(ctx, http.MethodGet, "/metrics", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
