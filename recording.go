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
	"strings"
	"time"
)

// recordingPrefix begins every EDF+ local recording identification field.
const recordingPrefix = "Startdate"

// Recording is the structured EDF+ local recording identification field.
// The start date duplicates the header's clipped date with a full
// four-digit year.
type Recording struct {
	StartDate  time.Time // Zero if unknown
	Code       string    // Hospital administration code of the investigation
	Technician string
	Equipment  string
}

// ParseRecording parses an EDF+ local recording identification field.
// Plain EDF files carry free-form text here; such fields fail to parse and
// should be used verbatim instead.
func ParseRecording(field string) (Recording, error) {
	parts := strings.Fields(field)
	if len(parts) < 5 || parts[0] != recordingPrefix {
		return Recording{}, fmt.Errorf("%w: recording identification %q", ErrMalformedHeader, field)
	}

	var r Recording
	if parts[1] != unknownField {
		startDate, err := parseIDDate(parts[1])
		if err != nil {
			return Recording{}, fmt.Errorf("%w: recording start date %q", ErrMalformedHeader, parts[1])
		}
		r.StartDate = startDate
	}
	if parts[2] != unknownField {
		r.Code = unescapeSpaces(parts[2])
	}
	if parts[3] != unknownField {
		r.Technician = unescapeSpaces(parts[3])
	}
	if parts[4] != unknownField {
		r.Equipment = unescapeSpaces(parts[4])
	}
	return r, nil
}

// String serializes the recording identification in the EDF+ subfield
// layout.
func (r Recording) String() string {
	date := unknownField
	if !r.StartDate.IsZero() {
		date = formatIDDate(r.StartDate)
	}
	return strings.Join([]string{
		recordingPrefix,
		date,
		idSubfield(r.Code),
		idSubfield(r.Technician),
		idSubfield(r.Equipment),
	}, " ")
}
