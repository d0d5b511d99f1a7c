// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

// ElfFile is the root of the editable tree: an ELF header plus an
// ordered sequence of top-level [Region]s, optionally followed by a
// GNU stack descriptor and a list of GNU relro regions.
//
// ElfFile exclusively owns its region tree. Mutating it (directly,
// or via the Update* traversal helpers in traverse.go) invalidates
// any [Layout] produced from an earlier version of the tree; a
// fresh [Plan] must be taken after any mutation (spec.md §3, §5).
type ElfFile struct {
	Header   ElfHeader
	Regions  []Region
	GnuStack *GnuStack
	GnuRelro []GnuRelroRegion
}

// NewFile returns an empty ElfFile for the given class and data
// encoding, with no regions. Callers append regions (usually
// starting with [ElfHeaderRegion]) before calling [Plan].
func NewFile(class Class, data Data) *ElfFile {
	return &ElfFile{
		Header: ElfHeader{
			Class: class,
			Data:  data,
		},
	}
}
