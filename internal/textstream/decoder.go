// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package textstream

import (
	"fmt"
	"unicode/utf8"
)

// DecodeError reports that a stream ended with an incomplete multi-byte
// character. Tail holds the dangling bytes.
type DecodeError struct {
	Tail []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream ended mid-character: %d dangling byte(s) % x", len(e.Tail), e.Tail)
}

// Decoder accumulates raw byte chunks and emits the longest decodable UTF-8
// prefix of each, carrying any trailing partial character into the next
// chunk. A Decoder is single-use per stream and not safe for concurrent use.
type Decoder struct {
	pending []byte
}

// NewDecoder returns a Decoder with no pending bytes.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to any bytes held back from earlier chunks and returns
// every complete character now available, in order. Bytes that form the
// prefix of an incomplete character are retained for the next call. Feed
// never fails: byte sequences that can never become valid UTF-8 pass
// through unchanged mid-stream rather than stalling the decoder.
func (d *Decoder) Feed(chunk []byte) string {
	if len(chunk) == 0 {
		return ""
	}

	buf := chunk
	if len(d.pending) > 0 {
		buf = make([]byte, 0, len(d.pending)+len(chunk))
		buf = append(buf, d.pending...)
		buf = append(buf, chunk...)
		d.pending = nil
	}

	n := completePrefixLen(buf)
	if n < len(buf) {
		// Copy the tail; buf may alias the caller's chunk.
		d.pending = make([]byte, len(buf)-n)
		copy(d.pending, buf[n:])
	}
	return string(buf[:n])
}

// Finish reports the end of the stream. It returns any remaining complete
// text, or a *DecodeError if held-back bytes form an incomplete character
// that can no longer be completed. The decoder is reset either way.
func (d *Decoder) Finish() (string, error) {
	if len(d.pending) == 0 {
		return "", nil
	}
	tail := d.pending
	d.pending = nil
	return "", &DecodeError{Tail: tail}
}

// Pending reports whether the decoder is holding back bytes from an
// incomplete character.
func (d *Decoder) Pending() bool {
	return len(d.pending) > 0
}

// completePrefixLen returns the length of the longest prefix of buf that does
// not end inside a multi-byte character. Only a trailing incomplete sequence
// is held back; invalid bytes elsewhere pass through and decode leniently.
func completePrefixLen(buf []byte) int {
	// A partial character can occupy at most utf8.UTFMax-1 trailing bytes,
	// so only the last few bytes need inspection.
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-utf8.UTFMax+1; i-- {
		b := buf[i]
		if b < utf8.RuneSelf {
			// ASCII byte; everything up to the end is complete.
			return len(buf)
		}
		if !utf8.RuneStart(b) {
			continue
		}
		// b starts a multi-byte sequence. If the sequence is complete (or
		// invalid, which decodes as a replacement character immediately),
		// the whole buffer is emittable; otherwise hold back from i.
		if utf8.FullRune(buf[i:]) {
			return len(buf)
		}
		return i
	}
	return len(buf)
}
