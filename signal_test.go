// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edfplus_test

import (
	"io"
	"testing"
	"time"

	"github.com/OpenPSG/edfplus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalReader(t *testing.T) {
	store := &memStore{}
	f, err := edfplus.Create(store, testPlainHeader())
	require.NoError(t, err)

	for n := 0; n < 3; n++ {
		require.NoError(t, f.AppendRecord(testRecord(f.Header(), n)))
	}

	sr, err := f.Signal(0)
	require.NoError(t, err)

	s := f.Header().Signals[0]
	want := []float64{
		s.Physical(0), s.Physical(0), s.Physical(0), s.Physical(0),
		s.Physical(1), s.Physical(1), s.Physical(1), s.Physical(1),
		s.Physical(2), s.Physical(2), s.Physical(2), s.Physical(2),
	}

	// Read in odd-sized chunks so reads straddle record boundaries.
	var got []float64
	buf := make([]float64, 5)
	for {
		n, err := sr.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, want, got)
}

func TestSignalReaderEOF(t *testing.T) {
	store := &memStore{}
	f, err := edfplus.Create(store, testPlainHeader())
	require.NoError(t, err)
	require.NoError(t, f.AppendRecord(testRecord(f.Header(), 0)))

	sr, err := f.Signal(1)
	require.NoError(t, err)

	buf := make([]float64, 4)
	n, err := sr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = sr.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestSignalRejectsBadIndex(t *testing.T) {
	hdr := edfplus.Header{
		Version:            edfplus.Version0,
		StartTime:          time.Date(2024, time.June, 1, 22, 0, 0, 0, time.UTC),
		Reserved:           edfplus.ReservedContinuous,
		DataRecordDuration: time.Second,
		Signals: []edfplus.Signal{
			{
				Label:             "EEG Fpz-Cz",
				PhysicalDimension: "uV",
				PhysicalMin:       -440,
				PhysicalMax:       510,
				DigitalMin:        -2048,
				DigitalMax:        2047,
				SamplesPerRecord:  4,
			},
			edfplus.AnnotationSignal(64),
		},
	}
	f, err := edfplus.Create(&memStore{}, hdr)
	require.NoError(t, err)

	_, err = f.Signal(-1)
	require.ErrorIs(t, err, edfplus.ErrOutOfRange)

	_, err = f.Signal(2)
	require.ErrorIs(t, err, edfplus.ErrOutOfRange)

	// Annotation channels are not sample streams.
	_, err = f.Signal(1)
	require.ErrorIs(t, err, edfplus.ErrMalformedHeader)
}
