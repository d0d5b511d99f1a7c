// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import "encoding/binary"

// Got is a Global Offset Table: a sequence of address-sized entries
// used for position-independent addressing. The layout engine does
// not interpret the entries; it only packs and unpacks them.
type Got struct {
	Index     uint16
	Name      []byte
	Flags     uint64
	Addr      uint64
	AddrAlign uint64
	Entries   []uint64
}

func gotEntrySize(class Class) uint64 {
	if class == ELFCLASS32 {
		return 4
	}
	return 8
}

// GotToSection renders g as the [Section] the layout planner will
// place in the file: SHT_PROGBITS, writable and allocatable, with
// one entry per address in g.Entries packed at the class's natural
// width and the given byte order.
func GotToSection(g *Got, class Class, order binary.ByteOrder) *Section {
	entSize := gotEntrySize(class)
	data := make([]byte, uint64(len(g.Entries))*entSize)
	for i, e := range g.Entries {
		putWidth(data[uint64(i)*entSize:], order, int(entSize), e)
	}
	return &Section{
		Index:     g.Index,
		Name:      g.Name,
		Type:      SHT_PROGBITS,
		Flags:     g.Flags | SHF_WRITE | SHF_ALLOC,
		Addr:      g.Addr,
		AddrAlign: g.AddrAlign,
		EntSize:   entSize,
		Data:      data,
	}
}

// SectionAsGot attempts to recover a Got from s, validating that it
// has the conventional shape a GOT section must have. It returns a
// [*ValidationError] (spec.md §7, "Recoverable validation") rather
// than a fatal error: this inspects externally-supplied data, not
// the engine's own tree.
func SectionAsGot(s *Section, class Class, order binary.ByteOrder) (*Got, error) {
	entSize := gotEntrySize(class)

	if s.Type != SHT_PROGBITS {
		return nil, invalidf("SectionAsGot", "section %d has type %d, want SHT_PROGBITS", s.Index, s.Type)
	}
	if s.Flags&(SHF_WRITE|SHF_ALLOC) != SHF_WRITE|SHF_ALLOC {
		return nil, invalidf("SectionAsGot", "section %d has flags %#x, want SHF_WRITE|SHF_ALLOC set", s.Index, s.Flags)
	}
	if s.EntSize != 0 && s.EntSize != entSize {
		return nil, invalidf("SectionAsGot", "section %d has entry size %d, want %d", s.Index, s.EntSize, entSize)
	}
	if len(s.Data)%int(entSize) != 0 {
		return nil, invalidf("SectionAsGot", "section %d data length %d is not a multiple of entry size %d", s.Index, len(s.Data), entSize)
	}

	entries := make([]uint64, len(s.Data)/int(entSize))
	for i := range entries {
		entries[i] = readWidth(s.Data[uint64(i)*entSize:], order, int(entSize))
	}

	return &Got{
		Index:     s.Index,
		Name:      s.Name,
		Flags:     s.Flags &^ (SHF_WRITE | SHF_ALLOC),
		Addr:      s.Addr,
		AddrAlign: s.AddrAlign,
		Entries:   entries,
	}, nil
}
