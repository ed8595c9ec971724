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
	"math"
)

// Physical converts a digital sample to its calibrated physical value using
// the signal's linear transform. Records always carry digital samples;
// conversion is an explicit utility, never part of decoding.
func (s *Signal) Physical(digital int16) float64 {
	if s.DigitalMax == s.DigitalMin {
		return 0 // Avoid division by zero
	}
	return s.PhysicalMin + (float64(digital)-float64(s.DigitalMin))*(s.PhysicalMax-s.PhysicalMin)/float64(s.DigitalMax-s.DigitalMin)
}

// Digital converts a physical value to the nearest digital sample, saturated
// to the signal's digital range.
func (s *Signal) Digital(physical float64) int16 {
	d, _ := s.digital(physical)
	return d
}

// DigitalStrict is like Digital but fails with ErrOutOfRange instead of
// saturating when the value falls outside the signal's physical range.
func (s *Signal) DigitalStrict(physical float64) (int16, error) {
	d, saturated := s.digital(physical)
	if saturated {
		return 0, fmt.Errorf("%w: physical value %v outside [%v, %v]", ErrOutOfRange, physical, s.PhysicalMin, s.PhysicalMax)
	}
	return d, nil
}

func (s *Signal) digital(physical float64) (value int16, saturated bool) {
	if s.PhysicalMax == s.PhysicalMin || s.DigitalMax == s.DigitalMin {
		return 0, false // Avoid division by zero
	}
	d := math.Round((physical-s.PhysicalMin)*float64(s.DigitalMax-s.DigitalMin)/(s.PhysicalMax-s.PhysicalMin) + float64(s.DigitalMin))
	lo, hi := float64(s.DigitalMin), float64(s.DigitalMax)
	switch {
	case d < lo:
		return int16(lo), true
	case d > hi:
		return int16(hi), true
	}
	return int16(d), false
}
