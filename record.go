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
	"encoding/binary"
	"fmt"
)

// DecodeRecord splits one data record's raw bytes into per-signal sample
// arrays. Slices belonging to annotation channels are routed through the TAL
// codec instead of being exposed as numeric samples. Decoding is
// all-or-nothing: on error no partial record is returned.
func DecodeRecord(raw []byte, hdr *Header) (*Record, error) {
	return decodeRecord(raw, hdr.Signals)
}

func decodeRecord(raw []byte, signals []Signal) (*Record, error) {
	size := recordBytes(signals)
	if len(raw) < size {
		return nil, fmt.Errorf("%w: %d bytes, record is %d", ErrTruncatedRecord, len(raw), size)
	}

	rec := &Record{}
	off := 0
	for i := range signals {
		s := &signals[i]
		if s.SamplesPerRecord < 0 {
			return nil, fmt.Errorf("%w: signal %d declares %d samples per record", ErrSampleCountMismatch, i, s.SamplesPerRecord)
		}
		n := s.SamplesPerRecord * 2
		chunk := raw[off : off+n]
		off += n

		if s.IsAnnotation() {
			anns, err := DecodeAnnotations(chunk)
			if err != nil {
				return nil, fmt.Errorf("signal %d: %w", i, err)
			}
			rec.Annotations = append(rec.Annotations, anns...)
			continue
		}

		samples := make([]int16, s.SamplesPerRecord)
		for j := range samples {
			samples[j] = int16(binary.LittleEndian.Uint16(chunk[j*2:]))
		}
		rec.Samples = append(rec.Samples, samples)
	}
	return rec, nil
}

// EncodeRecord assembles a record into its raw on-disk bytes. Every sample
// array must match its signal's declared samples-per-record count. The
// record's annotations are encoded into the first annotation channel, with
// any further annotation channels zero-padded; for EDF+ headers the first
// annotation must be a time-keeping entry.
func EncodeRecord(rec *Record, hdr *Header) ([]byte, error) {
	return encodeRecord(rec, hdr.Signals, hdr.EDFPlus())
}

func encodeRecord(rec *Record, signals []Signal, edfPlus bool) ([]byte, error) {
	var ordinary, annotation int
	for i := range signals {
		if signals[i].IsAnnotation() {
			annotation++
		} else {
			ordinary++
		}
	}
	if len(rec.Samples) != ordinary {
		return nil, fmt.Errorf("%w: record has %d sample arrays, header declares %d ordinary signals", ErrSampleCountMismatch, len(rec.Samples), ordinary)
	}
	if edfPlus && annotation > 0 {
		if len(rec.Annotations) == 0 || !rec.Annotations[0].IsTimeKeeping() {
			return nil, fmt.Errorf("%w: EDF+ record must begin with a time-keeping annotation", ErrMalformedAnnotation)
		}
	}
	if len(rec.Annotations) > 0 && annotation == 0 {
		return nil, fmt.Errorf("%w: record carries annotations but header has no annotation channel", ErrSizeMismatch)
	}

	raw := make([]byte, 0, recordBytes(signals))
	sampleIdx, annSeen := 0, false
	for i := range signals {
		s := &signals[i]
		if s.IsAnnotation() {
			anns := rec.Annotations
			if annSeen {
				anns = nil
			}
			annSeen = true
			chunk, err := EncodeAnnotations(anns, s.SamplesPerRecord*2)
			if err != nil {
				return nil, fmt.Errorf("signal %d: %w", i, err)
			}
			raw = append(raw, chunk...)
			continue
		}

		samples := rec.Samples[sampleIdx]
		sampleIdx++
		if len(samples) != s.SamplesPerRecord {
			return nil, fmt.Errorf("%w: signal %d has %d samples, header declares %d", ErrSampleCountMismatch, i, len(samples), s.SamplesPerRecord)
		}
		for _, v := range samples {
			raw = binary.LittleEndian.AppendUint16(raw, uint16(v))
		}
	}
	return raw, nil
}
