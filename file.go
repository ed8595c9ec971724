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
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// File is an open EDF/EDF+ file. It owns a sequential read cursor and the
// record index exclusively; a File must not be used from multiple
// goroutines concurrently.
type File struct {
	store   Store
	hdr     *Header
	engine  *seekEngine
	cursor  int
	records int // record count observed this session

	patchCount  bool // num_data_records must be patched on flush
	headerDirty bool // full header must be rewritten on flush (no records yet)
	sigOps      []signalChange
}

// signalChange is one structural header mutation, kept so that records
// written under an older signal layout can be carried forward by Rewrite.
type signalChange struct {
	remove bool
	index  int
	signal Signal
}

// Open opens an existing EDF/EDF+ file from the store. If the store
// implements io.Closer it is released on failure, and otherwise owned by
// the returned File until Close.
func Open(store Store) (_ *File, err error) {
	defer func() {
		if err != nil {
			_ = closeStore(store)
		}
	}()

	fixed := make([]byte, fixedHeaderBytes)
	if _, err := store.ReadAt(fixed, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	ns, aerr := strconv.Atoi(strings.TrimSpace(string(fixed[252:256])))
	if aerr != nil || ns < 0 {
		return nil, fmt.Errorf("%w: signal count %q", ErrMalformedHeader, strings.TrimSpace(string(fixed[252:256])))
	}

	full := make([]byte, fixedHeaderBytes+ns*signalHeaderBytes)
	if _, err := store.ReadAt(full, 0); err != nil {
		return nil, fmt.Errorf("reading signal headers: %w", err)
	}
	hdr, err := ParseHeader(full)
	if err != nil {
		return nil, err
	}

	// A placeholder record count means the writer never finalized the file;
	// derive the count from the store length instead.
	records := hdr.DataRecords
	if records == RecordCountUnknown {
		records = 0
		if rb := hdr.RecordBytes(); rb > 0 {
			length, lerr := store.Length()
			if lerr != nil {
				return nil, fmt.Errorf("reading store length: %w", lerr)
			}
			if n := (length - int64(hdr.HeaderBytes)) / int64(rb); n > 0 {
				records = int(n)
			}
		}
	}

	return &File{
		store:      store,
		hdr:        hdr,
		engine:     newSeekEngine(store, hdr),
		records:    records,
		patchCount: hdr.DataRecords == RecordCountUnknown,
	}, nil
}

// Create writes the initial header for a new EDF/EDF+ file to the store,
// with a placeholder record count that Close patches with the true count.
// The store is released on failure when it implements io.Closer.
func Create(store Store, hdr Header) (_ *File, err error) {
	defer func() {
		if err != nil {
			_ = closeStore(store)
		}
	}()

	if err := validateSignals(hdr.Signals); err != nil {
		return nil, err
	}
	if hdr.EDFPlus() && !hasAnnotationSignal(hdr.Signals) {
		return nil, fmt.Errorf("%w: EDF+ file requires an annotation signal", ErrMalformedHeader)
	}

	hdr.DataRecords = RecordCountUnknown // Unknown number of data records (at this time).
	hdr.SignalCount = len(hdr.Signals)
	hdr.HeaderBytes = fixedHeaderBytes + len(hdr.Signals)*signalHeaderBytes

	f := &File{
		store:      store,
		hdr:        &hdr,
		engine:     newSeekEngine(store, &hdr),
		patchCount: true,
	}
	if err := f.writeHeader(); err != nil {
		return nil, err
	}
	return f, nil
}

// OpenFile opens the EDF/EDF+ file at path for reading and writing.
func OpenFile(path string) (*File, error) {
	osf, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return Open(FileStore(osf))
}

// CreateFile creates a new EDF/EDF+ file at path. It fails if the file
// already exists.
func CreateFile(path string, hdr Header) (*File, error) {
	osf, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return Create(FileStore(osf), hdr)
}

// Header returns the file's in-memory header. Mutate it only through
// AddSignal and RemoveSignal.
func (f *File) Header() *Header {
	return f.hdr
}

// Records returns the number of data records currently in the file.
func (f *File) Records() int {
	return f.records
}

// ReadRecord decodes the record at the cursor and advances the cursor by
// one. At end-of-file it returns (nil, nil) rather than an error. A decode
// failure is local to the record: the cursor stays put and the caller may
// re-seek past it.
func (f *File) ReadRecord() (*Record, error) {
	if f.cursor >= f.records {
		return nil, nil
	}
	rec, err := f.readRecordAt(f.cursor)
	if err != nil {
		return nil, err
	}
	f.cursor++
	return rec, nil
}

func (f *File) readRecordAt(n int) (*Record, error) {
	off, g, err := f.engine.offsetOf(n, f.records)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, g.recordBytes)
	if _, rerr := f.store.ReadAt(raw, off); rerr != nil {
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: record %d extends past end of store", ErrTruncatedRecord, n)
		}
		return nil, fmt.Errorf("reading record %d: %w", n, rerr)
	}
	rec, err := decodeRecord(raw, g.signals)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", n, err)
	}
	return rec, nil
}

// SeekRecord repositions the cursor to record n without decoding anything.
func (f *File) SeekRecord(n int) error {
	if n < 0 || n >= f.records {
		return fmt.Errorf("%w: record %d of %d", ErrOutOfRange, n, f.records)
	}
	f.cursor = n
	return nil
}

// SeekDuration repositions the cursor to the record containing the given
// elapsed time. For discontinuous files this may extend the record index
// forward; monotonically increasing seeks pay for at most one full forward
// scan in total.
func (f *File) SeekDuration(t time.Duration) error {
	n, err := f.engine.recordFor(t, f.records)
	if err != nil {
		return err
	}
	f.cursor = n
	return nil
}

// ReadDuration reads the records spanning [start, start+length) and
// concatenates their sample arrays per signal. The result is clipped to
// record granularity: every spanned record contributes all of its samples,
// never a fraction of one. It fails with ErrOutOfRange when the requested
// span exceeds the file's last known elapsed time. The cursor is not moved.
func (f *File) ReadDuration(start, length time.Duration) (*Segment, error) {
	end, err := f.engine.end(f.records)
	if err != nil {
		return nil, err
	}
	if start < 0 || length < 0 || start+length > end {
		return nil, fmt.Errorf("%w: requested span [%v, %v] exceeds file end %v", ErrOutOfRange, start, start+length, end)
	}
	if length == 0 {
		return &Segment{Start: start}, nil
	}

	first, err := f.engine.recordFor(start, f.records)
	if err != nil {
		return nil, err
	}
	last, err := f.engine.recordFor(start+length-time.Nanosecond, f.records)
	if err != nil {
		return nil, err
	}

	seg := &Segment{}
	seg.Start, err = f.engine.onsetOf(first, f.records)
	if err != nil {
		return nil, err
	}
	for n := first; n <= last; n++ {
		rec, err := f.readRecordAt(n)
		if err != nil {
			return nil, err
		}
		if seg.Samples == nil {
			seg.Samples = make([][]int16, len(rec.Samples))
		} else if len(rec.Samples) != len(seg.Samples) {
			return nil, fmt.Errorf("%w: record %d has %d signals, span started with %d", ErrSampleCountMismatch, n, len(rec.Samples), len(seg.Samples))
		}
		for i := range rec.Samples {
			seg.Samples[i] = append(seg.Samples[i], rec.Samples[i]...)
		}
		seg.Annotations = append(seg.Annotations, rec.Annotations...)
	}
	return seg, nil
}

// AppendRecord encodes the record against the current header and writes it
// after the last record.
func (f *File) AppendRecord(rec *Record) error {
	raw, err := encodeRecord(rec, f.hdr.Signals, f.hdr.EDFPlus())
	if err != nil {
		return err
	}
	if f.headerDirty {
		if err := f.writeHeader(); err != nil {
			return err
		}
	}
	if _, err := f.store.WriteAt(raw, f.engine.endOffset(f.records)); err != nil {
		return fmt.Errorf("writing record %d: %w", f.records, err)
	}
	f.records++
	f.patchCount = true
	return nil
}

// UpdateRecord encodes the record against the current header and overwrites
// record n in place. It fails with ErrSizeMismatch if the encoded length
// differs from the size record n occupies on disk; per-record sample counts
// cannot change after creation without a full rewrite.
func (f *File) UpdateRecord(n int, rec *Record) error {
	off, g, err := f.engine.offsetOf(n, f.records)
	if err != nil {
		return err
	}
	raw, err := encodeRecord(rec, f.hdr.Signals, f.hdr.EDFPlus())
	if err != nil {
		return err
	}
	if len(raw) != g.recordBytes {
		return fmt.Errorf("%w: encoded record is %d bytes, record %d occupies %d", ErrSizeMismatch, len(raw), n, g.recordBytes)
	}
	if _, err := f.store.WriteAt(raw, off); err != nil {
		return fmt.Errorf("writing record %d: %w", n, err)
	}
	return nil
}

// AddSignal appends a signal to the in-memory header and recomputes the
// record size for subsequently appended or updated records. Records already
// on disk are not rewritten; use Rewrite to produce a retroactively
// consistent copy.
func (f *File) AddSignal(s Signal) error {
	if err := validateSignals([]Signal{s}); err != nil {
		return err
	}
	f.hdr.Signals = append(f.hdr.Signals, s)
	f.hdr.SignalCount = len(f.hdr.Signals)
	f.sigOps = append(f.sigOps, signalChange{index: len(f.hdr.Signals) - 1, signal: s})
	f.structuralChange()
	return nil
}

// RemoveSignal removes signal i from the in-memory header. Like AddSignal,
// this affects only records written afterwards.
func (f *File) RemoveSignal(i int) error {
	if i < 0 || i >= len(f.hdr.Signals) {
		return fmt.Errorf("%w: signal %d of %d", ErrOutOfRange, i, len(f.hdr.Signals))
	}
	f.hdr.Signals = append(f.hdr.Signals[:i], f.hdr.Signals[i+1:]...)
	f.hdr.SignalCount = len(f.hdr.Signals)
	f.sigOps = append(f.sigOps, signalChange{remove: true, index: i})
	f.structuralChange()
	return nil
}

func (f *File) structuralChange() {
	if f.records == 0 {
		// No records on disk yet: the on-disk header can simply be
		// rewritten with the new layout.
		f.hdr.HeaderBytes = fixedHeaderBytes + len(f.hdr.Signals)*signalHeaderBytes
		f.engine.rebase(f.hdr, len(f.sigOps))
		f.headerDirty = true
		return
	}
	f.engine.pushEpoch(f.records, f.hdr.Signals, len(f.sigOps))
}

// Flush patches the on-disk record count with the count observed during
// this session, and rewrites the header if a structural mutation happened
// before any records were written.
func (f *File) Flush() error {
	f.hdr.DataRecords = f.records
	if f.headerDirty {
		if err := f.writeHeader(); err != nil {
			return err
		}
		f.patchCount = false
		return nil
	}
	if f.patchCount {
		if _, err := f.store.WriteAt([]byte(pad(strconv.Itoa(f.records), 8)), 236); err != nil {
			return fmt.Errorf("patching record count: %w", err)
		}
		f.patchCount = false
	}
	return nil
}

// Close flushes the header and releases the store.
func (f *File) Close() error {
	ferr := f.Flush()
	cerr := closeStore(f.store)
	if ferr != nil {
		return ferr
	}
	return cerr
}

func (f *File) writeHeader() error {
	b, err := f.hdr.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := f.store.WriteAt(b, 0); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if f.records == 0 {
		if err := f.store.Truncate(int64(len(b))); err != nil {
			return fmt.Errorf("truncating store: %w", err)
		}
	}
	f.headerDirty = false
	return nil
}

// Rewrite writes a retroactively consistent copy of the file to dst:
// every record is re-encoded against the current header, with samples of
// added signals zero-filled and removed signals dropped, and the record
// count written as a concrete value. The destination store is not closed.
func (f *File) Rewrite(dst Store) error {
	hdr := *f.hdr
	hdr.Signals = append([]Signal(nil), f.hdr.Signals...)
	hdr.DataRecords = f.records
	hdr.HeaderBytes = fixedHeaderBytes + len(hdr.Signals)*signalHeaderBytes

	b, err := hdr.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := dst.WriteAt(b, 0); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	annotated := hasAnnotationSignal(hdr.Signals)
	off := int64(hdr.HeaderBytes)
	for n := 0; n < f.records; n++ {
		_, g, err := f.engine.offsetOf(n, f.records)
		if err != nil {
			return err
		}
		rec, err := f.readRecordAt(n)
		if err != nil {
			return err
		}
		patchRecord(rec, g.signals, f.sigOps[g.ops:])

		if !annotated {
			rec.Annotations = nil
		} else if hdr.EDFPlus() && (len(rec.Annotations) == 0 || !rec.Annotations[0].IsTimeKeeping()) {
			onset, ok := rec.Onset()
			if !ok {
				onset = hdr.DataRecordDuration * time.Duration(n)
			}
			rec.Annotations = append([]Annotation{TimeKeeping(onset)}, rec.Annotations...)
		}

		raw, err := encodeRecord(rec, hdr.Signals, hdr.EDFPlus())
		if err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		if _, err := dst.WriteAt(raw, off); err != nil {
			return fmt.Errorf("writing record %d: %w", n, err)
		}
		off += int64(len(raw))
	}
	return dst.Truncate(off)
}

// patchRecord reshapes a record decoded under an older signal layout to the
// layout produced by applying ops, zero-filling samples of added signals.
func patchRecord(rec *Record, signals []Signal, ops []signalChange) {
	sigs := append([]Signal(nil), signals...)
	for _, op := range ops {
		if op.remove {
			if !sigs[op.index].IsAnnotation() {
				k := ordinaryIndex(sigs, op.index)
				rec.Samples = append(rec.Samples[:k], rec.Samples[k+1:]...)
			}
			sigs = append(sigs[:op.index], sigs[op.index+1:]...)
			continue
		}
		if !op.signal.IsAnnotation() {
			rec.Samples = append(rec.Samples, make([]int16, op.signal.SamplesPerRecord))
		}
		sigs = append(sigs, op.signal)
	}
}

// ordinaryIndex returns the index of signal i among the non-annotation
// signals.
func ordinaryIndex(signals []Signal, i int) int {
	var k int
	for j := 0; j < i; j++ {
		if !signals[j].IsAnnotation() {
			k++
		}
	}
	return k
}

func validateSignals(signals []Signal) error {
	for i := range signals {
		s := &signals[i]
		if s.DigitalMin >= s.DigitalMax {
			return fmt.Errorf("%w: signal %d digital range [%d, %d]", ErrMalformedHeader, i, s.DigitalMin, s.DigitalMax)
		}
		if s.PhysicalMin == s.PhysicalMax {
			return fmt.Errorf("%w: signal %d physical range [%v, %v]", ErrMalformedHeader, i, s.PhysicalMin, s.PhysicalMax)
		}
		if s.SamplesPerRecord < 0 {
			return fmt.Errorf("%w: signal %d declares %d samples per record", ErrMalformedHeader, i, s.SamplesPerRecord)
		}
	}
	return nil
}

func hasAnnotationSignal(signals []Signal) bool {
	for i := range signals {
		if signals[i].IsAnnotation() {
			return true
		}
	}
	return false
}
