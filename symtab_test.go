// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import (
	"encoding/binary"
	"testing"
)

func TestBuildSymtabPayloadLayoutByClass(t *testing.T) {
	strtab := buildStringTable([][]byte{[]byte("main")})
	table := &SymbolTable{
		Index:       2,
		StrtabIndex: 1,
		Entries: []SymbolTableEntry{
			{Name: []byte("main"), Type: 2, Binding: 1, Visibility: 0, SectionIndex: 1, Value: 0x400, Size: 16},
		},
	}

	p32, err := buildSymtabPayload(ELFCLASS32, binary.LittleEndian, strtab, table)
	if err != nil {
		t.Fatal(err)
	}
	if len(p32) != 32 { // null entry (16) + one entry (16)
		t.Fatalf("len(p32) = %d, want 32", len(p32))
	}
	nameOff, _ := strtab.offsetOf([]byte("main"))
	entry32 := p32[16:]
	if binary.LittleEndian.Uint32(entry32[0:4]) != uint32(nameOff) {
		t.Errorf("32-bit name field wrong")
	}
	if binary.LittleEndian.Uint32(entry32[4:8]) != 0x400 {
		t.Errorf("32-bit value field wrong")
	}
	wantInfo := byte((1 << 4) | (2 & 0x0F))
	if entry32[12] != wantInfo {
		t.Errorf("32-bit info byte = %#x, want %#x", entry32[12], wantInfo)
	}

	p64, err := buildSymtabPayload(ELFCLASS64, binary.LittleEndian, strtab, table)
	if err != nil {
		t.Fatal(err)
	}
	if len(p64) != 48 { // null entry (24) + one entry (24)
		t.Fatalf("len(p64) = %d, want 48", len(p64))
	}
	entry64 := p64[24:]
	if entry64[4] != wantInfo {
		t.Errorf("64-bit info byte = %#x, want %#x", entry64[4], wantInfo)
	}
	if binary.LittleEndian.Uint64(entry64[8:16]) != 0x400 {
		t.Errorf("64-bit value field wrong")
	}
}

func TestBuildSymtabPayloadMissingNameFails(t *testing.T) {
	strtab := buildStringTable(nil)
	table := &SymbolTable{Entries: []SymbolTableEntry{{Name: []byte("ghost")}}}
	if _, err := buildSymtabPayload(ELFCLASS64, binary.LittleEndian, strtab, table); err == nil {
		t.Fatal("expected error for unresolvable symbol name")
	}
}

func TestSymbolTableLocalCount(t *testing.T) {
	table := &SymbolTable{Entries: []SymbolTableEntry{
		{Name: []byte("a"), Binding: 0},
		{Name: []byte("b"), Binding: 0},
		{Name: []byte("c"), Binding: 1},
	}}
	if got := table.localCount(); got != 2 {
		t.Errorf("localCount() = %d, want 2", got)
	}
	if got := symtabLocalCount(table); got != 3 {
		t.Errorf("symtabLocalCount() = %d, want 3 (includes null symbol)", got)
	}
}
