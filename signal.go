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
	"io"
)

// SignalReader streams one signal's samples across record boundaries,
// converted to physical units. It keeps its own position and does not
// disturb the File's record cursor.
type SignalReader struct {
	f             *File
	signal        Signal
	signalIndex   int
	currentRecord int // record being consumed
	currentSample int // next sample within the record
	chunk         []byte
	chunkRecord   int // record the chunk was read from, -1 if none
}

// Signal creates a SignalReader for the signal at index i. Annotation
// channels cannot be read as sample streams.
func (f *File) Signal(i int) (*SignalReader, error) {
	if i < 0 || i >= len(f.hdr.Signals) {
		return nil, fmt.Errorf("%w: signal %d of %d", ErrOutOfRange, i, len(f.hdr.Signals))
	}
	s := f.hdr.Signals[i]
	if s.IsAnnotation() {
		return nil, fmt.Errorf("%w: signal %d is an annotation channel", ErrMalformedHeader, i)
	}
	if s.SamplesPerRecord <= 0 {
		return nil, fmt.Errorf("%w: signal %d declares %d samples per record", ErrMalformedHeader, i, s.SamplesPerRecord)
	}
	return &SignalReader{
		f:           f,
		signal:      s,
		signalIndex: i,
		chunkRecord: -1,
	}, nil
}

// Read fills data with the signal's physical values, continuing across
// record boundaries. It returns io.EOF once the last record is exhausted.
func (sr *SignalReader) Read(data []float64) (int, error) {
	var n int
	for n < len(data) {
		if sr.currentRecord >= sr.f.records {
			return n, io.EOF
		}
		if sr.chunkRecord != sr.currentRecord {
			if err := sr.fill(); err != nil {
				return n, err
			}
		}
		for n < len(data) && sr.currentSample < sr.signal.SamplesPerRecord {
			digital := int16(binary.LittleEndian.Uint16(sr.chunk[sr.currentSample*2:]))
			data[n] = sr.signal.Physical(digital)
			n++
			sr.currentSample++
		}
		if sr.currentSample >= sr.signal.SamplesPerRecord {
			sr.currentSample = 0
			sr.currentRecord++
		}
	}
	return n, nil
}

// fill reads the signal's byte window of the current record. The window's
// offset is recomputed per record since structural header mutations can
// change the record layout partway through the file.
func (sr *SignalReader) fill() error {
	off, g, err := sr.f.engine.offsetOf(sr.currentRecord, sr.f.records)
	if err != nil {
		return err
	}
	if sr.signalIndex >= len(g.signals) {
		return fmt.Errorf("%w: signal %d absent from record %d", ErrOutOfRange, sr.signalIndex, sr.currentRecord)
	}
	for i := 0; i < sr.signalIndex; i++ {
		off += int64(g.signals[i].SamplesPerRecord * 2)
	}
	want := sr.signal.SamplesPerRecord * 2
	if cap(sr.chunk) < want {
		sr.chunk = make([]byte, want)
	}
	sr.chunk = sr.chunk[:want]
	if _, err := sr.f.store.ReadAt(sr.chunk, off); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: record %d extends past end of store", ErrTruncatedRecord, sr.currentRecord)
		}
		return fmt.Errorf("reading record %d: %w", sr.currentRecord, err)
	}
	sr.chunkRecord = sr.currentRecord
	return nil
}
