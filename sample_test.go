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
	"testing"

	"github.com/OpenPSG/edfplus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eegSignal() edfplus.Signal {
	return edfplus.Signal{
		Label:             "EEG Fpz-Cz",
		PhysicalDimension: "uV",
		PhysicalMin:       -440,
		PhysicalMax:       510,
		DigitalMin:        -2048,
		DigitalMax:        2047,
		SamplesPerRecord:  500,
	}
}

func TestPhysicalConversion(t *testing.T) {
	s := eegSignal()

	assert.Equal(t, -440.0, s.Physical(-2048))
	assert.Equal(t, 510.0, s.Physical(2047))

	// Halfway through the digital range lands halfway through the
	// physical range.
	mid := s.Physical(0)
	assert.InDelta(t, -440.0+2048.0*(510.0+440.0)/4095.0, mid, 1e-9)
}

func TestDigitalRoundTrip(t *testing.T) {
	s := eegSignal()
	for _, d := range []int16{-2048, -1024, -1, 0, 1, 1024, 2047} {
		assert.Equal(t, d, s.Digital(s.Physical(d)))
	}
}

func TestDigitalSaturates(t *testing.T) {
	s := eegSignal()

	assert.Equal(t, int16(2047), s.Digital(10000))
	assert.Equal(t, int16(-2048), s.Digital(-10000))
}

func TestDigitalStrict(t *testing.T) {
	s := eegSignal()

	d, err := s.DigitalStrict(0)
	require.NoError(t, err)
	assert.Equal(t, d, s.Digital(0))

	_, err = s.DigitalStrict(10000)
	require.ErrorIs(t, err, edfplus.ErrOutOfRange)

	_, err = s.DigitalStrict(-10000)
	require.ErrorIs(t, err, edfplus.ErrOutOfRange)
}

func TestPhysicalDegenerateRange(t *testing.T) {
	s := edfplus.Signal{DigitalMin: 0, DigitalMax: 0}
	assert.Zero(t, s.Physical(123))
}
