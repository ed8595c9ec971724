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
	"io"
	"os"
)

// Store is the random-access byte store an EDF file is read from and written
// to. I/O errors from the store are surfaced unchanged; retry policy, if
// any, belongs to the store. A store that also implements io.Closer is
// closed when the File owning it is closed.
type Store interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Length() (int64, error)
}

// FileStore returns a Store backed by an open *os.File. Closing the
// returned store closes the file.
func FileStore(f *os.File) Store {
	return &fileStore{f: f}
}

type fileStore struct {
	f *os.File
}

func (s *fileStore) ReadAt(p []byte, off int64) (int, error)  { return s.f.ReadAt(p, off) }
func (s *fileStore) WriteAt(p []byte, off int64) (int, error) { return s.f.WriteAt(p, off) }
func (s *fileStore) Truncate(size int64) error                { return s.f.Truncate(size) }
func (s *fileStore) Close() error                             { return s.f.Close() }

func (s *fileStore) Length() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// closeStore releases the store if it owns a closeable resource.
func closeStore(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
