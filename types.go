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
	"strings"
	"time"
)

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

// Reserved-field continuity markers defined by the EDF+ specification.
// A plain EDF file carries neither.
const (
	ReservedContinuous    = "EDF+C"
	ReservedDiscontinuous = "EDF+D"
)

// AnnotationLabel is the reserved signal label that designates an
// annotation channel in an EDF+ file.
const AnnotationLabel = "EDF Annotations"

// RecordCountUnknown is the on-disk placeholder for the number of data
// records while a file is still being written. It is patched with the true
// count on Close.
const RecordCountUnknown = -1

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date and time of the recording
	HeaderBytes        int           // Number of bytes in the header, 256*(1+SignalCount)
	Reserved           string        // Reserved field, carries the EDF+ continuity marker
	DataRecordDuration time.Duration // Duration of a single data record
	DataRecords        int           // Number of data records, RecordCountUnknown if not yet known
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// EDFPlus reports whether the header declares the EDF+ specification.
func (h *Header) EDFPlus() bool {
	return h.Continuous() || h.Discontinuous()
}

// Continuous reports whether the reserved field carries the EDF+C marker.
// Plain EDF files are continuous by definition but carry no marker.
func (h *Header) Continuous() bool {
	return strings.HasPrefix(h.Reserved, ReservedContinuous)
}

// Discontinuous reports whether the reserved field carries the EDF+D marker.
func (h *Header) Discontinuous() bool {
	return strings.HasPrefix(h.Reserved, ReservedDiscontinuous)
}

// RecordBytes returns the size of one data record in bytes.
func (h *Header) RecordBytes() int {
	return recordBytes(h.Signals)
}

func recordBytes(signals []Signal) int {
	var n int
	for _, s := range signals {
		n += s.SamplesPerRecord * 2
	}
	return n
}

// SampleRate returns the sample rate of the given signal in Hz, or 0 if the
// signal index or record duration does not allow one to be derived.
func (h *Header) SampleRate(signalIndex int) float64 {
	if signalIndex < 0 || signalIndex >= len(h.Signals) || h.DataRecordDuration <= 0 {
		return 0
	}
	return float64(h.Signals[signalIndex].SamplesPerRecord) / h.DataRecordDuration.Seconds()
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// IsAnnotation reports whether the signal is an EDF+ annotation channel.
func (s *Signal) IsAnnotation() bool {
	return s.Label == AnnotationLabel
}

// AnnotationSignal returns the signal header for an EDF+ annotation channel
// occupying size bytes per data record. The digital and physical ranges are
// the fixed values mandated for annotation channels.
func AnnotationSignal(size int) Signal {
	return Signal{
		Label:            AnnotationLabel,
		PhysicalMin:      -1,
		PhysicalMax:      1,
		DigitalMin:       -32768,
		DigitalMax:       32767,
		SamplesPerRecord: size / 2,
	}
}

// Record is one decoded data record: one sample array per ordinary signal in
// header order, plus the annotations parsed from the annotation channel(s).
type Record struct {
	Samples     [][]int16
	Annotations []Annotation
}

// NewRecord returns an empty record shaped for the given header, with one
// zero-filled sample array per ordinary signal.
func NewRecord(h *Header) *Record {
	r := &Record{}
	for i := range h.Signals {
		if !h.Signals[i].IsAnnotation() {
			r.Samples = append(r.Samples, make([]int16, h.Signals[i].SamplesPerRecord))
		}
	}
	return r
}

// Onset returns the record's elapsed time since the start of the file as
// given by its time-keeping annotation. ok is false for records without one
// (plain EDF records); their elapsed time is the record number multiplied by
// the record duration.
func (r *Record) Onset() (onset time.Duration, ok bool) {
	for i := range r.Annotations {
		if r.Annotations[i].IsTimeKeeping() {
			return r.Annotations[i].Onset, true
		}
	}
	return 0, false
}

// Annotation is a single timestamped annotation list (TAL) entry.
type Annotation struct {
	Onset    time.Duration // Elapsed time from the start of the file, may be negative
	Duration time.Duration // Duration of the annotated event, 0 if not specified (an explicit zero is not preserved on re-encode)
	Texts    []string      // Annotation texts, a single empty text for time-keeping entries
}

// IsTimeKeeping reports whether the annotation is a record's mandatory
// time-keeping entry: an empty first text and no duration.
func (a *Annotation) IsTimeKeeping() bool {
	return len(a.Texts) > 0 && a.Texts[0] == ""
}

// TimeKeeping returns the time-keeping annotation for a record starting at
// the given elapsed time.
func TimeKeeping(onset time.Duration) Annotation {
	return Annotation{Onset: onset, Texts: []string{""}}
}

// Segment is the result of a duration-bounded read. Samples holds the
// concatenated sample arrays of every spanned record, one entry per ordinary
// signal in header order; Annotations holds every annotation of the spanned
// records, time-keeping entries included.
type Segment struct {
	Start       time.Duration // Elapsed onset of the first spanned record
	Samples     [][]int16
	Annotations []Annotation
}
