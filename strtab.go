// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import (
	"bytes"
	"sort"
)

// stringTable is a suffix-merged ELF string table: a single payload
// beginning with a NUL byte, followed by each unique, non-suffix-
// redundant name terminated by NUL, plus a lookup from every
// requested name (and any of its suffixes that were also requested)
// to its offset within the payload (spec.md §4.1).
type stringTable struct {
	payload []byte
	offsets map[string]uint64
}

type strtabEntry struct {
	orig []byte
	rev  []byte
}

// buildStringTable builds a suffix-merged string table holding
// every name in names (duplicates and the empty string are
// tolerated; the empty string always resolves to offset 0).
//
// Algorithm (spec.md §4.1): reverse every name, sort the reversed
// forms ascending, and treat an entry as redundant if its reversed
// form is a byte-prefix of the next entry's reversed form in that
// order — that's exactly the condition for the original (unreversed)
// name being a suffix of the next entry's original name. The
// surviving ("maximal") entries are written to the payload in the
// opposite order (longest chains last-found first), and every
// eliminated entry's offset is derived from the maximal entry that
// contains it as a tail.
func buildStringTable(names [][]byte) *stringTable {
	unique := make(map[string][]byte)
	for _, n := range names {
		if len(n) == 0 {
			continue
		}
		unique[string(n)] = n
	}

	entries := make([]strtabEntry, 0, len(unique))
	for _, n := range unique {
		entries = append(entries, strtabEntry{orig: n, rev: reverseBytes(n)})
	}

	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].rev, entries[j].rev) < 0
	})

	// kept[i] is true if entries[i] is a maximal string, i.e. not a
	// suffix of entries[i+1]'s original name.
	n := len(entries)
	kept := make([]bool, n)
	covering := make([]int, n) // index of the maximal entry that contains entries[i] as a tail.
	nextCovering := -1
	for i := n - 1; i >= 0; i-- {
		isKept := true
		if i+1 < n && bytes.HasPrefix(entries[i+1].rev, entries[i].rev) {
			isKept = false
		}
		kept[i] = isKept
		if isKept {
			nextCovering = i
		}
		covering[i] = nextCovering
	}

	t := &stringTable{
		payload: []byte{0},
		offsets: make(map[string]uint64, n+1),
	}
	t.offsets[""] = 0

	payloadOffset := make([]uint64, n)
	offset := uint64(1)
	for i := n - 1; i >= 0; i-- {
		if !kept[i] {
			continue
		}
		payloadOffset[i] = offset
		t.payload = append(t.payload, entries[i].orig...)
		t.payload = append(t.payload, 0)
		offset += uint64(len(entries[i].orig)) + 1
	}

	for i := range entries {
		c := covering[i]
		lenDiff := len(entries[c].orig) - len(entries[i].orig)
		t.offsets[string(entries[i].orig)] = payloadOffset[c] + uint64(lenDiff)
	}

	return t
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

// offsetOf returns the payload offset of name, and whether it was
// found. A miss means the caller asked for a name that was never
// passed to buildStringTable: an internal invariant violation in
// the layout engine (spec.md §4.1, "Failure").
func (t *stringTable) offsetOf(name []byte) (uint64, bool) {
	off, ok := t.offsets[string(name)]
	return off, ok
}
