// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import (
	"encoding/binary"

	"golang.org/x/crypto/cryptobyte"
)

// buildSymtabPayload serializes table's entries into the byte
// payload of a .symtab section, preceded by the mandatory all-zero
// null symbol at index 0 (spec.md §4.3). Every entry's Name is
// resolved against strtab, which must have been built from (at
// least) every name appearing in table.
func buildSymtabPayload(class Class, order binary.ByteOrder, strtab *stringTable, table *SymbolTable) ([]byte, error) {
	rec := symRecord(class)
	b := cryptobyte.NewBuilder(make([]byte, 0, rec.size()*(len(table.Entries)+1)))

	rec.write(b, order, symValues{})

	for _, e := range table.Entries {
		nameOff, ok := strtab.offsetOf(e.Name)
		if !ok {
			return nil, fatalf("Symtab", int(table.Index), -1, "symbol name %q not found in string table", e.Name)
		}
		rec.write(b, order, symValues{
			Name:  nameOff,
			Info:  uint64(e.info()),
			Other: uint64(e.Visibility),
			Shndx: uint64(e.SectionIndex),
			Value: e.Value,
			Size:  e.Size,
		})
	}

	return b.Bytes()
}

// symtabLocalCount returns the value of sh_info for the synthesized
// .symtab section: the number of symbol table entries, including the
// mandatory null symbol at index 0, that precede the first
// non-local (global or weak) entry.
func symtabLocalCount(table *SymbolTable) uint32 {
	return uint32(1 + table.localCount())
}
