// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

// Region is a single entry in the ordered sequence of data regions
// that make up an [ElfFile] (or the body of a [Segment]). It is a
// closed set of variants, following the same sum-type-via-interface
// shape as this codebase's AST node types: a private marker method
// and a fixed list of implementations.
type Region interface {
	regionNode()
}

// ElfHeaderRegion is the sentinel marking the position of the ELF
// header. It must be the first region in the top-level region list.
type ElfHeaderRegion struct{}

func (ElfHeaderRegion) regionNode() {}

// SegmentHeadersRegion is the sentinel marking the position of the
// program header table. Unlike [SectionHeadersRegion], it may appear
// inside a [Segment]; its file offset must be aligned to the class's
// program-header alignment.
type SegmentHeadersRegion struct{}

func (SegmentHeadersRegion) regionNode() {}

// SectionHeadersRegion is the sentinel marking the position of the
// section header table. It must not appear inside a [Segment].
type SectionHeadersRegion struct{}

func (SectionHeadersRegion) regionNode() {}

// SegmentRegion wraps a [Segment], a loadable (or otherwise
// mapped) region of the file with its own nested sequence of
// regions.
type SegmentRegion struct {
	Segment *Segment
}

func (SegmentRegion) regionNode() {}

// SectionNameTableRegion is the sentinel marking the position of
// the synthesized .shstrtab section. Index is the section index
// assigned to .shstrtab; it also becomes e_shstrndx.
type SectionNameTableRegion struct {
	Index uint16
}

func (SectionNameTableRegion) regionNode() {}

// StrtabRegion is the sentinel marking the position of the
// synthesized .strtab (symbol name) section.
type StrtabRegion struct {
	Index uint16
}

func (StrtabRegion) regionNode() {}

// SymtabRegion is the sentinel marking the position of the
// synthesized .symtab section, built from Table.
type SymtabRegion struct {
	Table *SymbolTable
}

func (SymtabRegion) regionNode() {}

// GotRegion wraps a Global Offset Table section.
type GotRegion struct {
	Got *Got
}

func (GotRegion) regionNode() {}

// SectionDataRegion wraps an ordinary [Section].
type SectionDataRegion struct {
	Section *Section
}

func (SectionDataRegion) regionNode() {}

// RawRegion is a span of uninterpreted bytes, placed verbatim in the
// output with no alignment or section-table bookkeeping.
type RawRegion struct {
	Bytes []byte
}

func (RawRegion) regionNode() {}

// MemSize describes how a [Segment]'s in-memory size (p_memsz) is
// derived from its final file size.
type MemSize interface {
	resolve(fileSize uint64) uint64
	isMemSize()
}

// AbsoluteMemSize sets p_memsz to the larger of the segment's file
// size and W, e.g. to reserve zero-filled BSS space up to a fixed
// size.
type AbsoluteMemSize struct{ W uint64 }

func (a AbsoluteMemSize) resolve(fileSize uint64) uint64 {
	if fileSize > a.W {
		return fileSize
	}
	return a.W
}
func (AbsoluteMemSize) isMemSize() {}

// RelativeMemSize sets p_memsz to the segment's file size plus D,
// e.g. to reserve a fixed amount of zero-filled space after the
// segment's real content.
type RelativeMemSize struct{ D uint64 }

func (r RelativeMemSize) resolve(fileSize uint64) uint64 { return fileSize + r.D }
func (RelativeMemSize) isMemSize()                       {}

// Segment is a loadable-segment wrapper containing its own ordered
// sequence of regions. Segments may nest arbitrarily; a segment's
// file footprint equals the sum of the footprints of its children
// plus any inserted padding (spec.md §3).
type Segment struct {
	Index    uint16
	Type     uint32
	Flags    uint32
	VirtAddr uint64
	PhysAddr uint64
	Align    uint64
	MemSize  MemSize
	Regions  []Region
}

// Section describes an ordinary ELF section: a named region with
// type, flags, virtual address, and a byte payload. If Data is
// non-empty, Addr must be congruent to AddrAlign (spec.md §3's
// invariant).
type Section struct {
	Index     uint16
	Name      []byte
	Type      uint32
	Flags     uint64
	Addr      uint64
	Size      uint64 // Declared size; defaults to len(Data) if zero and Data is non-empty.
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
	Data      []byte
}

// declaredSize returns the section's sh_size: the caller-declared
// Size if non-zero, otherwise the payload length.
func (s *Section) declaredSize() uint64 {
	if s.Size != 0 {
		return s.Size
	}
	return uint64(len(s.Data))
}

// SymbolTableEntry is a single entry of a symbol table.
type SymbolTableEntry struct {
	Name         []byte
	Type         uint8
	Binding      uint8
	Visibility   uint8
	SectionIndex uint16 // st_shndx
	Value        uint64
	Size         uint64
}

// info returns the composite st_info byte: (bind<<4)|(type&0xF)
// (spec.md §4.3).
func (e SymbolTableEntry) info() uint8 {
	return (e.Binding << 4) | (e.Type & 0x0F)
}

// SymbolTable is the full entry list backing a [SymtabRegion]. Index
// is the section index assigned to the synthesized .symtab section;
// StrtabIndex is the section index of the .strtab section that
// holds the symbol names (it becomes the synthesized section's
// sh_link).
//
// Entries must list all STB_LOCAL symbols first, matching the ELF
// requirement that local symbols precede global ones; localCount is
// derived as the length of that leading run.
type SymbolTable struct {
	Index       uint16
	StrtabIndex uint16
	Entries     []SymbolTableEntry
}

func (t *SymbolTable) localCount() int {
	n := 0
	for _, e := range t.Entries {
		if e.Binding != 0 {
			break
		}
		n++
	}
	return n
}

// GnuStack describes the PT_GNU_STACK segment attached after the
// main region tree is laid out.
type GnuStack struct {
	Executable bool
}

// GnuRelroRegion describes a PT_GNU_RELRO segment attached after
// the main region tree is laid out. SegmentIndex names the already
// laid-out segment this relro region is carved from; VirtAddr is
// the virtual address where the read-only-after-relocation region
// begins.
type GnuRelroRegion struct {
	Index       uint16
	SegmentIndex uint16
	VirtAddr    uint64
}
