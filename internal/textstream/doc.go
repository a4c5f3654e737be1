// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package textstream reassembles UTF-8 text from a byte stream whose chunk
// boundaries may fall anywhere, including inside a multi-byte character.
package textstream
