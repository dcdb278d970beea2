package hashfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"
)

// Build writes a new hash table file at path containing entries. This
// package never writes a file as part of serving requests (maps are
// read-only at runtime) — Build exists for tests and offline provisioning
// tooling that produces the on-disk map a server later opens with Open.
func Build(path string, entries map[string][]byte) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bucketCount := len(keys)
	if bucketCount == 0 {
		bucketCount = 1
	}

	chains := make([][]string, bucketCount)
	for _, k := range keys {
		idx := bucketIndex(k, bucketCount)
		chains[idx] = append(chains[idx], k)
	}

	type placed struct {
		key    string
		offset int64
	}

	var flat []placed
	offsetOf := make(map[string]int64, len(keys))
	var cursor int64
	for _, chain := range chains {
		for _, k := range chain {
			offsetOf[k] = cursor
			flat = append(flat, placed{key: k, offset: cursor})
			cursor += int64(4 + len(k) + 4 + len(entries[k]) + 8)
		}
	}

	bucketHead := make([]int64, bucketCount)
	for i, chain := range chains {
		if len(chain) > 0 {
			bucketHead[i] = offsetOf[chain[0]] + 1
		}
	}

	var data bytes.Buffer
	for _, chain := range chains {
		for i, k := range chain {
			var next int64
			if i+1 < len(chain) {
				next = offsetOf[chain[i+1]] + 1
			}
			writeUint32(&data, uint32(len(k)))
			data.WriteString(k)
			val := entries[k]
			writeUint32(&data, uint32(len(val)))
			data.Write(val)
			writeInt64(&data, next)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(magic); err != nil {
		return err
	}
	if err := writeUint32(w, version); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(bucketCount)); err != nil {
		return err
	}
	for _, off := range bucketHead {
		if err := writeInt64(w, off); err != nil {
			return err
		}
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return err
	}
	return w.Flush()
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func writeInt64(w io.Writer, v int64) error {
	return binary.Write(w, binary.BigEndian, v)
}
