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
)

// memStore is an in-memory Store for tests.
type memStore struct {
	b []byte
}

func (m *memStore) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.b)) {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memStore) WriteAt(p []byte, off int64) (int, error) {
	if need := off + int64(len(p)); need > int64(len(m.b)) {
		grown := make([]byte, need)
		copy(grown, m.b)
		m.b = grown
	}
	return copy(m.b[off:], p), nil
}

func (m *memStore) Truncate(size int64) error {
	if size < int64(len(m.b)) {
		m.b = m.b[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, m.b)
	m.b = grown
	return nil
}

func (m *memStore) Length() (int64, error) {
	return int64(len(m.b)), nil
}

// countingStore counts ReadAt calls, to observe how much of a file a seek
// touches.
type countingStore struct {
	*memStore
	reads int
}

func (c *countingStore) ReadAt(p []byte, off int64) (int, error) {
	c.reads++
	return c.memStore.ReadAt(p, off)
}
