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

// unknownField marks an unknown subfield in EDF+ identification fields.
const unknownField = "X"

// Patient is the structured EDF+ local patient identification field. Empty
// strings and a zero Birthdate serialize as the unknown marker "X".
type Patient struct {
	Code      string    // Hospital administration code
	Sex       string    // "M", "F" or empty for unknown
	Birthdate time.Time // Zero if unknown
	Name      string    // Spaces are stored as underscores
}

// ParsePatient parses an EDF+ local patient identification field. Plain EDF
// files carry free-form text here; such fields fail to parse and should be
// used verbatim instead.
func ParsePatient(field string) (Patient, error) {
	parts := strings.Fields(field)
	if len(parts) < 4 {
		return Patient{}, fmt.Errorf("%w: patient identification %q has %d subfields, want at least 4", ErrMalformedHeader, field, len(parts))
	}

	var p Patient
	if parts[0] != unknownField {
		p.Code = unescapeSpaces(parts[0])
	}
	switch parts[1] {
	case "M", "F":
		p.Sex = parts[1]
	case unknownField:
	default:
		return Patient{}, fmt.Errorf("%w: patient sex %q", ErrMalformedHeader, parts[1])
	}
	if parts[2] != unknownField {
		birthdate, err := parseIDDate(parts[2])
		if err != nil {
			return Patient{}, fmt.Errorf("%w: patient birthdate %q", ErrMalformedHeader, parts[2])
		}
		p.Birthdate = birthdate
	}
	if parts[3] != unknownField {
		p.Name = unescapeSpaces(parts[3])
	}
	return p, nil
}

// String serializes the patient identification in the EDF+ subfield layout.
func (p Patient) String() string {
	parts := []string{
		idSubfield(p.Code),
		unknownField,
		unknownField,
		idSubfield(p.Name),
	}
	if p.Sex == "M" || p.Sex == "F" {
		parts[1] = p.Sex
	}
	if !p.Birthdate.IsZero() {
		parts[2] = formatIDDate(p.Birthdate)
	}
	return strings.Join(parts, " ")
}

// idSubfield escapes a subfield value, or returns the unknown marker for an
// empty one.
func idSubfield(s string) string {
	if s == "" {
		return unknownField
	}
	return escapeSpaces(s)
}

func escapeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

func unescapeSpaces(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// parseIDDate parses the dd-MMM-yyyy date used inside EDF+ identification
// fields. Unlike the clipped header date it carries a full four-digit year.
func parseIDDate(s string) (time.Time, error) {
	t, err := time.Parse("2-Jan-2006", capitalizeMonth(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func formatIDDate(t time.Time) string {
	return strings.ToUpper(t.Format("02-Jan-2006"))
}

// capitalizeMonth normalizes the all-caps month abbreviation mandated by
// EDF+ to the mixed case expected by time.Parse.
func capitalizeMonth(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[1]) != 3 {
		return s
	}
	parts[1] = strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
	return strings.Join(parts, "-")
}
