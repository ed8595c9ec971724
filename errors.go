// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edfplus

import "errors"

var (
	// ErrMalformedHeader indicates a header field that is not decodable at
	// its fixed offset and width, or a header whose declared size disagrees
	// with its signal count.
	ErrMalformedHeader = errors.New("edfplus: malformed header")

	// ErrSampleCountMismatch indicates a record whose per-signal sample
	// arrays disagree with the sample counts declared in the header.
	ErrSampleCountMismatch = errors.New("edfplus: sample count mismatch")

	// ErrMalformedAnnotation indicates an annotation channel whose bytes do
	// not form valid timestamped annotation lists, or an EDF+ record encoded
	// without a leading time-keeping annotation.
	ErrMalformedAnnotation = errors.New("edfplus: malformed annotation")

	// ErrSizeMismatch indicates an encoded byte sequence that does not fit
	// the fixed size reserved for it on disk.
	ErrSizeMismatch = errors.New("edfplus: size mismatch")

	// ErrOutOfRange indicates a record number or elapsed-time window outside
	// the file, or a physical value outside a signal's range in strict mode.
	ErrOutOfRange = errors.New("edfplus: out of range")

	// ErrTruncatedRecord indicates raw record bytes shorter than one full
	// data record.
	ErrTruncatedRecord = errors.New("edfplus: truncated record")
)
