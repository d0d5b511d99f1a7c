// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import (
	"encoding/binary"
	"testing"
)

func TestGotRoundTrip(t *testing.T) {
	g := &Got{
		Index:     4,
		Name:      []byte(".got"),
		Addr:      0x2000,
		AddrAlign: 8,
		Entries:   []uint64{0x1111, 0x2222, 0x3333},
	}

	sec := GotToSection(g, ELFCLASS64, binary.LittleEndian)
	back, err := SectionAsGot(sec, ELFCLASS64, binary.LittleEndian)
	if err != nil {
		t.Fatalf("SectionAsGot: %v", err)
	}
	if len(back.Entries) != len(g.Entries) {
		t.Fatalf("len(Entries) = %d, want %d", len(back.Entries), len(g.Entries))
	}
	for i := range g.Entries {
		if back.Entries[i] != g.Entries[i] {
			t.Errorf("Entries[%d] = %#x, want %#x", i, back.Entries[i], g.Entries[i])
		}
	}
	if back.Addr != g.Addr || back.AddrAlign != g.AddrAlign {
		t.Errorf("Addr/AddrAlign not preserved: %+v", back)
	}
}

func TestSectionAsGotRejectsWrongType(t *testing.T) {
	sec := &Section{Type: SHT_STRTAB, Flags: SHF_WRITE | SHF_ALLOC}
	if _, err := SectionAsGot(sec, ELFCLASS64, binary.LittleEndian); err == nil {
		t.Fatal("expected ValidationError for wrong section type")
	} else if _, ok := err.(*ValidationError); !ok {
		t.Errorf("error type = %T, want *ValidationError", err)
	}
}

func TestSectionAsGotRejectsWrongFlags(t *testing.T) {
	sec := &Section{Type: SHT_PROGBITS, Flags: SHF_ALLOC}
	if _, err := SectionAsGot(sec, ELFCLASS64, binary.LittleEndian); err == nil {
		t.Fatal("expected ValidationError for missing SHF_WRITE")
	}
}

func TestSectionAsGotRejectsBadLength(t *testing.T) {
	sec := &Section{Type: SHT_PROGBITS, Flags: SHF_WRITE | SHF_ALLOC, Data: []byte{1, 2, 3}}
	if _, err := SectionAsGot(sec, ELFCLASS64, binary.LittleEndian); err == nil {
		t.Fatal("expected ValidationError for data length not a multiple of entry size")
	}
}

func TestGotEntrySizeByClass(t *testing.T) {
	if gotEntrySize(ELFCLASS32) != 4 {
		t.Errorf("gotEntrySize(32) = %d, want 4", gotEntrySize(ELFCLASS32))
	}
	if gotEntrySize(ELFCLASS64) != 8 {
		t.Errorf("gotEntrySize(64) = %d, want 8", gotEntrySize(ELFCLASS64))
	}
}
