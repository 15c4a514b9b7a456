// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rotatewriter provides a size-capped log file writer.
package rotatewriter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Writer appends to a capped file under one directory. A write that would
// cross the cap opens a fresh timestamped file first, and files beyond the
// retention count are pruned, oldest first.
type Writer struct {
	dir      string
	baseName string
	maxSize  int64
	maxFiles int

	mu      sync.Mutex
	current *os.File
	size    int64
}

// New creates a writer rotating at maxSize bytes and keeping at most
// maxFiles files. Zero maxFiles keeps everything. The first file is opened
// here, so a bad directory fails early.
func New(dir, baseName string, maxSize int64, maxFiles int) (*Writer, error) {
	w := &Writer{
		dir:      dir,
		baseName: baseName,
		maxSize:  maxSize,
		maxFiles: maxFiles,
	}
	if err := w.openNext(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current == nil {
		return 0, os.ErrClosed
	}
	if w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.current.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current file. Further writes fail with os.ErrClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current = nil
	return err
}

func (w *Writer) openNext() error {
	if w.current != nil {
		w.current.Close()
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.baseName, time.Now().Format("2006-01-02T15-04-05")))
	if _, err := os.Stat(path); err == nil {
		// rotated within the second, disambiguate with milliseconds
		path = filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.baseName, time.Now().Format("2006-01-02T15-04-05.000")))
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w.current = file
	w.size = 0
	return nil
}

func (w *Writer) rotate() error {
	if err := w.openNext(); err != nil {
		return err
	}
	if w.maxFiles > 0 {
		return w.prune()
	}
	return nil
}

// prune removes the oldest files beyond the retention count. The timestamped
// names sort oldest first.
func (w *Writer) prune() error {
	files, err := filepath.Glob(filepath.Join(w.dir, w.baseName+"-*.log"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for len(files) > w.maxFiles {
		if err := os.Remove(files[0]); err != nil {
			return err
		}
		files = files[1:]
	}
	return nil
}
