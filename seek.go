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
	"fmt"
	"sort"
	"time"
)

// geometry describes the record layout from a given record number onwards.
// A file starts with a single geometry; every structural header mutation
// (signal added or removed) opens a new one for subsequently written
// records, leaving earlier records laid out as they were.
type geometry struct {
	firstRecord int
	recordBytes int
	offset      int64 // byte offset of firstRecord
	signals     []Signal
	ops         int // structural mutations applied before this geometry
}

// seekEngine maps record numbers and elapsed-time offsets to byte
// positions. For discontinuous files it maintains an append-only index of
// visited record onsets, extended lazily by decoding only the time-keeping
// annotation of each newly visited record.
type seekEngine struct {
	store      Store
	recDur     time.Duration
	continuous bool
	epochs     []geometry
	onsets     []time.Duration // onsets[n] is record n's elapsed onset, discontinuous only
}

func newSeekEngine(store Store, hdr *Header) *seekEngine {
	return &seekEngine{
		store:      store,
		recDur:     hdr.DataRecordDuration,
		continuous: !hdr.Discontinuous(),
		epochs: []geometry{{
			recordBytes: hdr.RecordBytes(),
			offset:      int64(hdr.HeaderBytes),
			signals:     append([]Signal(nil), hdr.Signals...),
		}},
	}
}

func (e *seekEngine) epochFor(n int) *geometry {
	for i := len(e.epochs) - 1; i > 0; i-- {
		if e.epochs[i].firstRecord <= n {
			return &e.epochs[i]
		}
	}
	return &e.epochs[0]
}

// offsetOf returns the byte offset of record n and the geometry it was
// written under. Record geometry is fixed, so this is O(1) for both
// topologies.
func (e *seekEngine) offsetOf(n, count int) (int64, *geometry, error) {
	if n < 0 || n >= count {
		return 0, nil, fmt.Errorf("%w: record %d of %d", ErrOutOfRange, n, count)
	}
	g := e.epochFor(n)
	return g.offset + int64(n-g.firstRecord)*int64(g.recordBytes), g, nil
}

// endOffset returns the byte offset just past the last record.
func (e *seekEngine) endOffset(count int) int64 {
	g := &e.epochs[len(e.epochs)-1]
	return g.offset + int64(count-g.firstRecord)*int64(g.recordBytes)
}

// pushEpoch records a structural header mutation taking effect at record
// count. Index entries for already visited records stay valid; anything at
// or beyond the mutation point is dropped.
func (e *seekEngine) pushEpoch(count int, signals []Signal, ops int) {
	g := geometry{
		firstRecord: count,
		recordBytes: recordBytes(signals),
		offset:      e.endOffset(count),
		signals:     append([]Signal(nil), signals...),
		ops:         ops,
	}
	if last := &e.epochs[len(e.epochs)-1]; last.firstRecord == count {
		g.offset = last.offset
		*last = g
	} else {
		e.epochs = append(e.epochs, g)
	}
	if len(e.onsets) > count {
		e.onsets = e.onsets[:count]
	}
}

// rebase resets the engine to a single geometry, used when the header is
// rewritten in place before any records exist.
func (e *seekEngine) rebase(hdr *Header, ops int) {
	e.epochs = []geometry{{
		recordBytes: hdr.RecordBytes(),
		offset:      int64(hdr.HeaderBytes),
		signals:     append([]Signal(nil), hdr.Signals...),
		ops:         ops,
	}}
	e.onsets = nil
	e.continuous = !hdr.Discontinuous()
	e.recDur = hdr.DataRecordDuration
}

// onsetOf returns record n's elapsed onset.
func (e *seekEngine) onsetOf(n, count int) (time.Duration, error) {
	if n < 0 || n >= count {
		return 0, fmt.Errorf("%w: record %d of %d", ErrOutOfRange, n, count)
	}
	if e.continuous {
		return e.recDur * time.Duration(n), nil
	}
	if err := e.extendTo(n, count); err != nil {
		return 0, err
	}
	return e.onsets[n], nil
}

// extendTo grows the onset index until it covers record n.
func (e *seekEngine) extendTo(n, count int) error {
	for len(e.onsets) <= n && len(e.onsets) < count {
		onset, err := e.scanOnset(len(e.onsets), count)
		if err != nil {
			return err
		}
		e.onsets = append(e.onsets, onset)
	}
	return nil
}

// scanOnset reads record n's time-keeping annotation without decoding its
// signal payload. Records without one fall back to n times the record
// duration.
func (e *seekEngine) scanOnset(n, count int) (time.Duration, error) {
	off, g, err := e.offsetOf(n, count)
	if err != nil {
		return 0, err
	}
	annOff, annLen := 0, 0
	for i := range g.signals {
		if g.signals[i].IsAnnotation() {
			annLen = g.signals[i].SamplesPerRecord * 2
			break
		}
		annOff += g.signals[i].SamplesPerRecord * 2
	}
	if annLen == 0 {
		return e.recDur * time.Duration(n), nil
	}

	buf := make([]byte, annLen)
	if _, err := e.store.ReadAt(buf, off+int64(annOff)); err != nil {
		return 0, fmt.Errorf("reading time-keeping annotation of record %d: %w", n, err)
	}
	anns, err := DecodeAnnotations(buf)
	if err != nil {
		return 0, fmt.Errorf("record %d: %w", n, err)
	}
	for i := range anns {
		if anns[i].IsTimeKeeping() {
			return anns[i].Onset, nil
		}
	}
	return e.recDur * time.Duration(n), nil
}

// recordFor resolves an elapsed-time offset to the record containing it,
// or, when t falls into a discontinuity gap, to the latest record starting
// at or before t. Monotonically increasing queries extend the onset index
// forward at most once across the whole file.
func (e *seekEngine) recordFor(t time.Duration, count int) (int, error) {
	if t < 0 || count == 0 || e.recDur <= 0 {
		return 0, fmt.Errorf("%w: no record at elapsed time %v", ErrOutOfRange, t)
	}
	if e.continuous {
		n := int(t / e.recDur)
		if n >= count {
			return 0, fmt.Errorf("%w: elapsed time %v beyond end of file %v", ErrOutOfRange, t, e.recDur*time.Duration(count))
		}
		return n, nil
	}

	// Extend the scan horizon until it passes t or end-of-file.
	for len(e.onsets) < count && (len(e.onsets) == 0 || e.onsets[len(e.onsets)-1] <= t) {
		if err := e.extendTo(len(e.onsets), count); err != nil {
			return 0, err
		}
	}
	n := sort.Search(len(e.onsets), func(i int) bool { return e.onsets[i] > t }) - 1
	if n < 0 {
		return 0, fmt.Errorf("%w: elapsed time %v precedes the first record", ErrOutOfRange, t)
	}
	if n == count-1 && t >= e.onsets[n]+e.recDur {
		return 0, fmt.Errorf("%w: elapsed time %v beyond end of file", ErrOutOfRange, t)
	}
	return n, nil
}

// end returns the file's last known elapsed time: the end of its final
// record. For discontinuous files this forces the index to cover the whole
// file, paid at most once.
func (e *seekEngine) end(count int) (time.Duration, error) {
	if count == 0 {
		return 0, nil
	}
	if e.continuous {
		return e.recDur * time.Duration(count), nil
	}
	if err := e.extendTo(count-1, count); err != nil {
		return 0, err
	}
	return e.onsets[count-1] + e.recDur, nil
}
