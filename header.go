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
	"strconv"
	"strings"
	"time"
)

// fixedHeaderBytes is the size of the fixed header block; every signal adds
// another signalHeaderBytes of column-ordered fields.
const (
	fixedHeaderBytes  = 256
	signalHeaderBytes = 256
)

// ParseHeader parses a complete EDF/EDF+ header from b. b must hold the
// fixed 256-byte block and the 256 bytes of signal fields per signal.
//
// Signal calibration ranges are deliberately not validated here: recordings
// in the wild carry degenerate ranges and must stay readable. Signal.Physical
// guards the degenerate case, and Create enforces the ranges for newly
// written files.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < fixedHeaderBytes {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the fixed header block", ErrMalformedHeader, len(b))
	}

	hdr := &Header{}
	hdr.Version = Version(field(b, 0, 8))
	hdr.PatientID = field(b, 8, 80)
	hdr.RecordingID = field(b, 88, 80)

	startDate, err := parseStartDate(field(b, 168, 8))
	if err != nil {
		return nil, fmt.Errorf("%w: start date: %v", ErrMalformedHeader, err)
	}
	startTime, err := time.Parse("15.04.05", field(b, 176, 8))
	if err != nil {
		return nil, fmt.Errorf("%w: start time: %v", ErrMalformedHeader, err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	hdr.HeaderBytes, err = strconv.Atoi(field(b, 184, 8))
	if err != nil {
		return nil, fmt.Errorf("%w: header size: %v", ErrMalformedHeader, err)
	}

	hdr.Reserved = field(b, 192, 44)

	hdr.DataRecords, err = strconv.Atoi(field(b, 236, 8))
	if err != nil {
		return nil, fmt.Errorf("%w: number of data records: %v", ErrMalformedHeader, err)
	}

	hdr.DataRecordDuration, err = time.ParseDuration(field(b, 244, 8) + "s")
	if err != nil {
		return nil, fmt.Errorf("%w: data record duration: %v", ErrMalformedHeader, err)
	}

	hdr.SignalCount, err = strconv.Atoi(field(b, 252, 4))
	if err != nil {
		return nil, fmt.Errorf("%w: signal count: %v", ErrMalformedHeader, err)
	}
	if hdr.SignalCount < 0 {
		return nil, fmt.Errorf("%w: negative signal count %d", ErrMalformedHeader, hdr.SignalCount)
	}
	if want := fixedHeaderBytes + hdr.SignalCount*signalHeaderBytes; hdr.HeaderBytes != want {
		return nil, fmt.Errorf("%w: declared header size %d, %d signals require %d", ErrMalformedHeader, hdr.HeaderBytes, hdr.SignalCount, want)
	}
	if len(b) < hdr.HeaderBytes {
		return nil, fmt.Errorf("%w: %d bytes is shorter than declared header size %d", ErrMalformedHeader, len(b), hdr.HeaderBytes)
	}

	// Signal fields are stored as column blocks: all labels, then all
	// transducers, and so on.
	hdr.Signals = make([]Signal, hdr.SignalCount)
	off := fixedHeaderBytes

	err = signalColumn(b, &off, 16, hdr.Signals, func(s *Signal, v string) error {
		s.Label = v
		return nil
	})
	if err == nil {
		err = signalColumn(b, &off, 80, hdr.Signals, func(s *Signal, v string) error {
			s.TransducerType = v
			return nil
		})
	}
	if err == nil {
		err = signalColumn(b, &off, 8, hdr.Signals, func(s *Signal, v string) error {
			s.PhysicalDimension = v
			return nil
		})
	}
	if err == nil {
		err = signalColumn(b, &off, 8, hdr.Signals, func(s *Signal, v string) (ferr error) {
			s.PhysicalMin, ferr = strconv.ParseFloat(v, 64)
			return ferr
		})
	}
	if err == nil {
		err = signalColumn(b, &off, 8, hdr.Signals, func(s *Signal, v string) (ferr error) {
			s.PhysicalMax, ferr = strconv.ParseFloat(v, 64)
			return ferr
		})
	}
	if err == nil {
		err = signalColumn(b, &off, 8, hdr.Signals, func(s *Signal, v string) (ferr error) {
			s.DigitalMin, ferr = strconv.Atoi(v)
			return ferr
		})
	}
	if err == nil {
		err = signalColumn(b, &off, 8, hdr.Signals, func(s *Signal, v string) (ferr error) {
			s.DigitalMax, ferr = strconv.Atoi(v)
			return ferr
		})
	}
	if err == nil {
		err = signalColumn(b, &off, 80, hdr.Signals, func(s *Signal, v string) error {
			s.Prefiltering = v
			return nil
		})
	}
	if err == nil {
		err = signalColumn(b, &off, 8, hdr.Signals, func(s *Signal, v string) (ferr error) {
			s.SamplesPerRecord, ferr = strconv.Atoi(v)
			return ferr
		})
	}
	if err == nil {
		err = signalColumn(b, &off, 32, hdr.Signals, func(s *Signal, v string) error {
			s.Reserved = v
			return nil
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: signal fields: %v", ErrMalformedHeader, err)
	}

	return hdr, nil
}

// MarshalBinary serializes the header to its fixed on-disk layout. Text
// fields are left-justified, padded with spaces and truncated to their
// declared widths; numeric fields too wide for their declared widths fail
// with ErrMalformedHeader rather than being truncated. The header size
// field is always recomputed from the signal count.
func (h *Header) MarshalBinary() ([]byte, error) {
	for _, f := range []string{string(h.Version), h.PatientID, h.RecordingID, h.Reserved} {
		if !isPrintableASCII(f) {
			return nil, fmt.Errorf("%w: field %q contains non-printable characters", ErrMalformedHeader, f)
		}
	}
	for i := range h.Signals {
		s := &h.Signals[i]
		for _, f := range []string{s.Label, s.TransducerType, s.PhysicalDimension, s.Prefiltering, s.Reserved} {
			if !isPrintableASCII(f) {
				return nil, fmt.Errorf("%w: signal %d field %q contains non-printable characters", ErrMalformedHeader, i, f)
			}
		}
	}

	headerBytes := fixedHeaderBytes + len(h.Signals)*signalHeaderBytes
	var sb strings.Builder
	sb.Grow(headerBytes)

	var numErr error
	num := func(s string, width int) {
		if numErr == nil && len(s) > width {
			numErr = fmt.Errorf("%w: numeric field %q exceeds %d bytes", ErrMalformedHeader, s, width)
			return
		}
		sb.WriteString(pad(s, width))
	}

	sb.WriteString(pad(string(h.Version), 8))
	sb.WriteString(pad(h.PatientID, 80))
	sb.WriteString(pad(h.RecordingID, 80))
	sb.WriteString(pad(formatStartDate(h.StartTime), 8))
	sb.WriteString(pad(h.StartTime.Format("15.04.05"), 8))
	num(strconv.Itoa(headerBytes), 8)
	sb.WriteString(pad(h.Reserved, 44))
	num(strconv.Itoa(h.DataRecords), 8)
	num(formatSeconds(h.DataRecordDuration), 8)
	num(strconv.Itoa(len(h.Signals)), 4)

	for i := range h.Signals {
		sb.WriteString(pad(h.Signals[i].Label, 16))
	}
	for i := range h.Signals {
		sb.WriteString(pad(h.Signals[i].TransducerType, 80))
	}
	for i := range h.Signals {
		sb.WriteString(pad(h.Signals[i].PhysicalDimension, 8))
	}
	for i := range h.Signals {
		num(formatPhysicalValue(h.Signals[i].PhysicalMin), 8)
	}
	for i := range h.Signals {
		num(formatPhysicalValue(h.Signals[i].PhysicalMax), 8)
	}
	for i := range h.Signals {
		num(strconv.Itoa(h.Signals[i].DigitalMin), 8)
	}
	for i := range h.Signals {
		num(strconv.Itoa(h.Signals[i].DigitalMax), 8)
	}
	for i := range h.Signals {
		sb.WriteString(pad(h.Signals[i].Prefiltering, 80))
	}
	for i := range h.Signals {
		num(strconv.Itoa(h.Signals[i].SamplesPerRecord), 8)
	}
	for i := range h.Signals {
		sb.WriteString(pad(h.Signals[i].Reserved, 32))
	}

	if numErr != nil {
		return nil, numErr
	}
	return []byte(sb.String()), nil
}

func signalColumn(b []byte, off *int, width int, signals []Signal, set func(*Signal, string) error) error {
	for i := range signals {
		if err := set(&signals[i], field(b, *off, width)); err != nil {
			return err
		}
		*off += width
	}
	return nil
}

func field(b []byte, off, width int) string {
	return strings.TrimSpace(string(b[off : off+width]))
}

// pad left-justifies s into a width-byte field, truncating deterministically
// on overflow rather than reallocating the fixed layout.
func pad(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// parseStartDate parses the dd.mm.yy start date with the 1985 clipping rule:
// years 85-99 mean 1985-1999, years 00-84 mean 2000-2084 and the literal
// "yy" means a date after 2084 that the old field cannot represent.
func parseStartDate(s string) (time.Time, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	var year int
	switch {
	case parts[2] == "yy":
		year = 2100
	default:
		yy, err := strconv.Atoi(parts[2])
		if err != nil || yy < 0 || yy > 99 {
			return time.Time{}, fmt.Errorf("invalid year in date %q", s)
		}
		if yy < 85 {
			year = 2000 + yy
		} else {
			year = 1900 + yy
		}
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day in date %q", s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid month in date %q", s)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// formatStartDate is the inverse of parseStartDate: dates outside 1985-2084
// serialize their year as the literal "yy".
func formatStartDate(t time.Time) string {
	year := "yy"
	if t.Year() >= 1985 && t.Year() <= 2084 {
		year = fmt.Sprintf("%02d", t.Year()%100)
	}
	return fmt.Sprintf("%02d.%02d.%s", t.Day(), int(t.Month()), year)
}

// formatSeconds renders a duration as the shortest plain decimal number of
// seconds, the form the format stores durations and onsets in.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func formatPhysicalValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if len(s) > 8 {
		s = strconv.FormatFloat(v, 'f', 2, 64)
	}
	if len(s) > 8 {
		s = strconv.FormatFloat(v, 'f', 0, 64)
	}
	return s
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
