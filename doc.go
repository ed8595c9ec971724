// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edfplus reads, writes and seeks within EDF and EDF+ biosignal
// recording files.
//
// EDF files consist of a fixed-width ASCII header followed by a sequence of
// fixed-size data records holding little-endian 16-bit samples. EDF+ adds
// text-encoded timestamped annotations and optionally discontinuous
// recordings, where the true elapsed time of each record is only known from
// its embedded time-keeping annotation.
//
// The package is built around an offset-addressed Store collaborator so that
// multi-hour recordings can be read and edited without loading them into
// memory. A File is not safe for concurrent use; open independent handles or
// serialize access externally.
package edfplus
