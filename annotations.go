// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edfplus

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// TAL framing bytes. A timestamped annotation list is
// onset[0x15 duration]0x14 text{0x14 text}0x14 0x00, and the unused tail of
// an annotation channel is padded with 0x00.
const (
	talFieldSep    = 0x14
	talDurationSep = 0x15
	talTerminator  = 0x00
)

// DecodeAnnotations parses the raw bytes of an annotation channel into its
// timestamped annotation lists. The time-keeping entry of a record is
// returned like any other annotation, as the first element.
func DecodeAnnotations(b []byte) ([]Annotation, error) {
	var anns []Annotation
	for len(b) > 0 {
		if b[0] == talTerminator {
			// NUL padding after the last TAL.
			b = b[1:]
			continue
		}
		end := bytes.IndexByte(b, talTerminator)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated TAL", ErrMalformedAnnotation)
		}
		a, err := parseTAL(b[:end])
		if err != nil {
			return nil, err
		}
		anns = append(anns, a)
		b = b[end+1:]
	}
	return anns, nil
}

// parseTAL parses a single TAL unit, excluding its trailing 0x00.
func parseTAL(unit []byte) (Annotation, error) {
	if len(unit) == 0 || unit[len(unit)-1] != talFieldSep {
		return Annotation{}, fmt.Errorf("%w: TAL not terminated by field separator", ErrMalformedAnnotation)
	}
	parts := bytes.Split(unit[:len(unit)-1], []byte{talFieldSep})

	head := parts[0]
	var a Annotation
	if i := bytes.IndexByte(head, talDurationSep); i >= 0 {
		d, err := parseSeconds(string(head[i+1:]))
		if err != nil {
			return Annotation{}, fmt.Errorf("%w: duration %q: %v", ErrMalformedAnnotation, head[i+1:], err)
		}
		a.Duration = d
		head = head[:i]
	}
	if len(head) == 0 || (head[0] != '+' && head[0] != '-') {
		return Annotation{}, fmt.Errorf("%w: onset %q missing sign", ErrMalformedAnnotation, head)
	}
	onset, err := parseSeconds(string(head))
	if err != nil {
		return Annotation{}, fmt.Errorf("%w: onset %q: %v", ErrMalformedAnnotation, head, err)
	}
	a.Onset = onset

	for _, p := range parts[1:] {
		a.Texts = append(a.Texts, string(p))
	}
	return a, nil
}

// EncodeAnnotations encodes annotations into an annotation channel window of
// capacity bytes, padding the unused tail with 0x00. It fails with
// ErrSizeMismatch if the encoded TALs exceed the capacity, and with
// ErrMalformedAnnotation for texts containing bytes that would collide with
// the TAL framing. Annotations with no texts encode to nothing.
func EncodeAnnotations(anns []Annotation, capacity int) ([]byte, error) {
	var buf bytes.Buffer
	for i := range anns {
		a := &anns[i]
		if a.Duration < 0 {
			return nil, fmt.Errorf("%w: negative duration %v", ErrMalformedAnnotation, a.Duration)
		}
		for _, t := range a.Texts {
			if !validTALText(t) {
				return nil, fmt.Errorf("%w: text %q contains TAL framing bytes", ErrMalformedAnnotation, t)
			}
		}
		appendTAL(&buf, a)
	}
	if buf.Len() > capacity {
		return nil, fmt.Errorf("%w: %d encoded annotation bytes exceed channel capacity %d", ErrSizeMismatch, buf.Len(), capacity)
	}
	out := make([]byte, capacity)
	copy(out, buf.Bytes())
	return out, nil
}

func appendTAL(buf *bytes.Buffer, a *Annotation) {
	if len(a.Texts) == 0 {
		return
	}
	if a.Onset >= 0 {
		buf.WriteByte('+')
	}
	buf.WriteString(formatSeconds(a.Onset))
	if a.Duration > 0 {
		buf.WriteByte(talDurationSep)
		buf.WriteString(formatSeconds(a.Duration))
	}
	buf.WriteByte(talFieldSep)
	for _, t := range a.Texts {
		buf.WriteString(t)
		buf.WriteByte(talFieldSep)
	}
	buf.WriteByte(talTerminator)
}

// validTALText reports whether a text can be framed inside a TAL. Control
// bytes other than tab, line feed and carriage return are indistinguishable
// from the framing bytes once written.
func validTALText(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 && s[i] != '\t' && s[i] != '\n' && s[i] != '\r' {
			return false
		}
	}
	return true
}

// parseSeconds parses a plain decimal number of seconds with sub-second
// precision into a duration.
func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(math.Round(f * float64(time.Second))), nil
}
