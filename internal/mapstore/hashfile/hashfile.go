// Package hashfile implements a minimal, immutable on-disk hash table: the
// gdbm-equivalent storage for "type: gdbm" maps. No gdbm binding or
// embeddable key/value library exists anywhere this module was grounded
// against, so the format here is hand-rolled on stdlib primitives only
// (encoding/binary, hash/fnv, os). Files are opened once and held for the
// process lifetime; every lookup is guarded by a mutex, mirroring gdbm's
// single-reader semantics.
package hashfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"sync"
)

const (
	magic   = "WNHF"
	version = uint32(1)
)

// Table is an opened, read-only hash table file.
type Table struct {
	mu      sync.Mutex
	f       *os.File
	buckets []int64 // encoded: 0 = empty chain, else realOffset+1
	dataOff int64
}

// Open opens the hash table file at path, reading its bucket index into
// memory. The data section is read lazily, one entry at a time, on Lookup.
func Open(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := bufio.NewReader(f)

	hdr := make([]byte, len(magic))
	if _, err := io.ReadFull(r, hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("hashfile: read magic: %w", err)
	}
	if string(hdr) != magic {
		f.Close()
		return nil, fmt.Errorf("hashfile: %s: bad magic", path)
	}

	var ver uint32
	if err := binary.Read(r, binary.BigEndian, &ver); err != nil {
		f.Close()
		return nil, fmt.Errorf("hashfile: read version: %w", err)
	}
	if ver != version {
		f.Close()
		return nil, fmt.Errorf("hashfile: %s: unsupported version %d", path, ver)
	}

	var bucketCount uint32
	if err := binary.Read(r, binary.BigEndian, &bucketCount); err != nil {
		f.Close()
		return nil, fmt.Errorf("hashfile: read bucket count: %w", err)
	}

	buckets := make([]int64, bucketCount)
	for i := range buckets {
		if err := binary.Read(r, binary.BigEndian, &buckets[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("hashfile: read bucket table: %w", err)
		}
	}

	dataOff := int64(len(magic)) + 4 + 4 + 8*int64(bucketCount)

	return &Table{f: f, buckets: buckets, dataOff: dataOff}, nil
}

// Close releases the underlying file handle.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.f.Close()
}

func bucketIndex(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// Lookup performs a single hash lookup, returning the stored value and
// true if key is present.
func (t *Table) Lookup(key string) ([]byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buckets) == 0 {
		return nil, false, nil
	}

	offset := t.buckets[bucketIndex(key, len(t.buckets))]
	for offset != 0 {
		real := offset - 1
		if _, err := t.f.Seek(t.dataOff+real, io.SeekStart); err != nil {
			return nil, false, err
		}
		entryKey, value, next, err := readEntry(t.f)
		if err != nil {
			return nil, false, err
		}
		if entryKey == key {
			return value, true, nil
		}
		offset = next
	}
	return nil, false, nil
}

func readEntry(r io.Reader) (key string, value []byte, next int64, err error) {
	var keyLen uint32
	if err = binary.Read(r, binary.BigEndian, &keyLen); err != nil {
		return
	}
	keyBytes := make([]byte, keyLen)
	if _, err = io.ReadFull(r, keyBytes); err != nil {
		return
	}

	var valLen uint32
	if err = binary.Read(r, binary.BigEndian, &valLen); err != nil {
		return
	}
	value = make([]byte, valLen)
	if _, err = io.ReadFull(r, value); err != nil {
		return
	}

	if err = binary.Read(r, binary.BigEndian, &next); err != nil {
		return
	}

	key = string(keyBytes)
	return
}
