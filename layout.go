// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import (
	"encoding/binary"
	"sort"
)

// Phdr is a fully-resolved program-header table entry.
type Phdr struct {
	Index    uint16
	Type     uint32
	Flags    uint32
	VirtAddr uint64
	PhysAddr uint64
	Offset   uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

// Shdr is a fully-resolved section-header table entry.
type Shdr struct {
	Index     uint16
	NameOffset uint64
	Offset    uint64
	Type      uint32
	Flags     uint64
	Addr      uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

// Layout is the immutable result of [Plan]: every file offset and
// forward reference an [ElfFile] requires, computed without emitting
// any bytes. It borrows nothing from the ElfFile it was built from
// and may be kept after the file is mutated or discarded, though it
// no longer describes that mutated file (spec.md §3, "Ownership").
type Layout struct {
	Header ElfHeader

	PhdrCount uint16
	ShdrCount uint16

	ShstrtabPayload []byte
	ShstrtabOffsets map[string]uint64
	StrtabPayload   []byte
	StrtabOffsets   map[string]uint64

	OutputSize      uint64
	PhdrTableOffset uint64
	ShdrTableOffset uint64
	Shstrndx        uint16

	phdrs      map[uint16]Phdr
	extraPhdrs []Phdr // GnuStack (if any), then GnuRelro entries, in that order.
	shdrs      map[uint16]Shdr
}

// Size returns the total length, in bytes, of the image [Emit] will
// produce for this layout.
func (l *Layout) Size() uint64 { return l.OutputSize }

// Phdrs returns every program-header entry in table order: segments
// by ascending index, followed by the GNU_STACK entry (if any),
// followed by GNU_RELRO entries in the order they were attached to
// the [ElfFile].
func (l *Layout) Phdrs() []Phdr {
	out := make([]Phdr, 0, len(l.phdrs)+len(l.extraPhdrs))
	indices := make([]uint16, 0, len(l.phdrs))
	for idx := range l.phdrs {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for _, idx := range indices {
		out = append(out, l.phdrs[idx])
	}
	out = append(out, l.extraPhdrs...)
	return out
}

// Shdrs returns the resolved section-header entry for every
// non-null section index, keyed by that index. Index 0 (the
// mandatory null section) is never present in the returned map.
func (l *Layout) Shdrs() map[uint16]Shdr {
	out := make(map[uint16]Shdr, len(l.shdrs))
	for k, v := range l.shdrs {
		out[k] = v
	}
	return out
}

// shdrOrder returns section indices in ascending order, for
// deterministic table emission.
func (l *Layout) shdrOrder() []uint16 {
	indices := make([]uint16, 0, len(l.shdrs))
	for idx := range l.shdrs {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

// planner accumulates layout state during a single forward walk of
// an ElfFile's region tree (spec.md §4.4).
type planner struct {
	class Class

	outputSize      uint64
	phdrCountTotal  uint16
	shdrCountTotal  uint16
	phdrTableOffset uint64
	shdrTableOffset uint64
	shstrndx        uint16

	sawElfHeader      bool
	sawSegmentHeaders bool
	sawSectionHeaders bool

	shstrtab *stringTable
	strtab   *stringTable
	order    binary.ByteOrder

	phdrs map[uint16]Phdr
	shdrs map[uint16]Shdr
}

// Plan resolves every file offset and forward reference in file,
// producing a [Layout]. It fails fatally on any structural violation
// listed in spec.md §7 and produces no partial output on failure.
func Plan(file *ElfFile) (*Layout, error) {
	class := file.Header.Class
	order := file.Header.Data.byteOrder()

	var sectionNames, symbolNames [][]byte
	var segCount, shCount int
	collectCounts(file.Regions, &segCount, &shCount, &sectionNames, &symbolNames)

	shstrtab := buildStringTable(sectionNames)
	strtab := buildStringTable(symbolNames)

	phdrCount := segCount
	if file.GnuStack != nil {
		phdrCount++
	}
	phdrCount += len(file.GnuRelro)
	shdrCount := shCount + 1

	if phdrCount > 65535 {
		return nil, fatalf("SegmentHeaders", -1, -1, "program header count %d exceeds 65535", phdrCount)
	}
	if shdrCount > 65535 {
		return nil, fatalf("SectionHeaders", -1, -1, "section header count %d exceeds 65535", shdrCount)
	}

	p := &planner{
		class:          class,
		order:          order,
		phdrCountTotal: uint16(phdrCount),
		shdrCountTotal: uint16(shdrCount),
		shstrtab:       shstrtab,
		strtab:         strtab,
		phdrs:          make(map[uint16]Phdr),
		shdrs:          make(map[uint16]Shdr),
	}

	if err := p.walk(file.Regions, false); err != nil {
		return nil, err
	}
	if !p.sawElfHeader {
		return nil, fatalf("ElfHeader", -1, -1, "file has no ElfHeader region")
	}

	var extra []Phdr
	if file.GnuStack != nil {
		flags := PF_R | PF_W
		if file.GnuStack.Executable {
			flags |= PF_X
		}
		extra = append(extra, Phdr{Type: PT_GNU_STACK, Flags: uint32(flags), Align: 8})
	}
	for _, r := range file.GnuRelro {
		if _, exists := p.phdrs[r.Index]; exists {
			return nil, fatalf("GnuRelro", int(r.Index), -1, "segment index %d already exists", r.Index)
		}
		ref, ok := p.phdrs[r.SegmentIndex]
		if !ok {
			return nil, fatalf("GnuRelro", int(r.Index), -1, "referenced segment %d does not exist", r.SegmentIndex)
		}
		extra = append(extra, Phdr{
			Index:    r.Index,
			Type:     PT_GNU_RELRO,
			Flags:    PF_R,
			Align:    1,
			Offset:   ref.Offset + (r.VirtAddr - ref.VirtAddr),
			VirtAddr: r.VirtAddr,
		})
	}

	return &Layout{
		Header:          file.Header,
		PhdrCount:       uint16(phdrCount),
		ShdrCount:       uint16(shdrCount),
		ShstrtabPayload: shstrtab.payload,
		ShstrtabOffsets: shstrtab.offsets,
		StrtabPayload:   strtab.payload,
		StrtabOffsets:   strtab.offsets,
		OutputSize:      p.outputSize,
		PhdrTableOffset: p.phdrTableOffset,
		ShdrTableOffset: p.shdrTableOffset,
		Shstrndx:        p.shstrndx,
		phdrs:           p.phdrs,
		extraPhdrs:      extra,
		shdrs:           p.shdrs,
	}, nil
}

// collectCounts walks regions recursively (descending into segments)
// gathering the forward-referenced counts and string pools spec.md
// §9 says must be computed up front: segment count, section count,
// every section name, and every symbol name.
func collectCounts(regions []Region, segCount, shCount *int, sectionNames, symbolNames *[][]byte) {
	for _, r := range regions {
		switch v := r.(type) {
		case SegmentRegion:
			*segCount++
			collectCounts(v.Segment.Regions, segCount, shCount, sectionNames, symbolNames)
		case SectionNameTableRegion:
			*shCount++
			*sectionNames = append(*sectionNames, []byte(".shstrtab"))
		case StrtabRegion:
			*shCount++
			*sectionNames = append(*sectionNames, []byte(".strtab"))
		case SymtabRegion:
			*shCount++
			*sectionNames = append(*sectionNames, []byte(".symtab"))
			for _, e := range v.Table.Entries {
				*symbolNames = append(*symbolNames, e.Name)
			}
		case GotRegion:
			*shCount++
			*sectionNames = append(*sectionNames, v.Got.Name)
		case SectionDataRegion:
			*shCount++
			*sectionNames = append(*sectionNames, v.Section.Name)
		}
	}
}

func (p *planner) walk(regions []Region, inLoad bool) error {
	for _, r := range regions {
		if err := p.walkOne(r, inLoad); err != nil {
			return err
		}
	}
	return nil
}

func (p *planner) walkOne(r Region, inLoad bool) error {
	switch v := r.(type) {
	case ElfHeaderRegion:
		if p.outputSize != 0 {
			return fatalf("ElfHeader", -1, int64(p.outputSize), "ElfHeader region must be first in the file")
		}
		p.sawElfHeader = true
		p.outputSize += ehdrSize(p.class)

	case SegmentHeadersRegion:
		if p.outputSize%phdrAlign(p.class) != 0 {
			return fatalf("SegmentHeaders", -1, int64(p.outputSize), "offset not aligned to %d", phdrAlign(p.class))
		}
		p.sawSegmentHeaders = true
		p.phdrTableOffset = p.outputSize
		p.outputSize += uint64(p.phdrCountTotal) * phdrEntrySize(p.class)

	case SectionHeadersRegion:
		if inLoad {
			return fatalf("SectionHeaders", -1, int64(p.outputSize), "section headers should not be within a segment")
		}
		p.sawSectionHeaders = true
		p.outputSize = alignUp(p.outputSize, shdrAlign(p.class))
		p.shdrTableOffset = p.outputSize
		p.outputSize += uint64(p.shdrCountTotal) * shdrEntrySize(p.class)

	case SegmentRegion:
		return p.walkSegment(v.Segment)

	case SectionNameTableRegion:
		p.shstrndx = v.Index
		sec := &Section{
			Index:     v.Index,
			Name:      []byte(".shstrtab"),
			Type:      SHT_STRTAB,
			AddrAlign: 1,
			Data:      p.shstrtab.payload,
		}
		return p.addSection(sec, inLoad)

	case StrtabRegion:
		sec := &Section{
			Index:     v.Index,
			Name:      []byte(".strtab"),
			Type:      SHT_STRTAB,
			AddrAlign: 1,
			Data:      p.strtab.payload,
		}
		return p.addSection(sec, inLoad)

	case SymtabRegion:
		payload, err := buildSymtabPayload(p.class, p.order, p.strtab, v.Table)
		if err != nil {
			return err
		}
		sec := &Section{
			Index:     v.Table.Index,
			Name:      []byte(".symtab"),
			Type:      SHT_SYMTAB,
			Link:      uint32(v.Table.StrtabIndex),
			Info:      symtabLocalCount(v.Table),
			AddrAlign: symtabAlign(p.class),
			EntSize:   symtabEntrySize(p.class),
			Data:      payload,
		}
		return p.addSection(sec, inLoad)

	case GotRegion:
		sec := GotToSection(v.Got, p.class, p.order)
		return p.addSection(sec, inLoad)

	case SectionDataRegion:
		return p.addSection(v.Section, inLoad)

	case RawRegion:
		p.outputSize += uint64(len(v.Bytes))
	}
	return nil
}

func (p *planner) walkSegment(seg *Segment) error {
	if _, exists := p.phdrs[seg.Index]; exists {
		return fatalf("Segment", int(seg.Index), -1, "segment index %d already exists", seg.Index)
	}

	start := p.outputSize
	if err := p.walk(seg.Regions, true); err != nil {
		return err
	}
	fileSize := p.outputSize - start
	memSize := seg.MemSize.resolve(fileSize)

	if fileSize > 0 && seg.Align > 0 && start%seg.Align != seg.VirtAddr%seg.Align {
		return fatalf("Segment", int(seg.Index), int64(start), "file offset and virtual address not congruent modulo alignment %d", seg.Align)
	}

	p.phdrs[seg.Index] = Phdr{
		Index:    seg.Index,
		Type:     seg.Type,
		Flags:    seg.Flags,
		VirtAddr: seg.VirtAddr,
		PhysAddr: seg.PhysAddr,
		Offset:   start,
		FileSize: fileSize,
		MemSize:  memSize,
		Align:    seg.Align,
	}
	return nil
}

func (p *planner) addSection(s *Section, inLoad bool) error {
	if s.Index == 0 {
		return fatalf("Section", 0, -1, "section index 0 is reserved for the null section")
	}
	if _, exists := p.shdrs[s.Index]; exists {
		return fatalf("Section", int(s.Index), -1, "section index %d already exists", s.Index)
	}

	hasData := len(s.Data) > 0

	if hasData && s.AddrAlign > 0 && s.Addr%s.AddrAlign != 0 {
		return fatalf("Section", int(s.Index), -1, "address %#x not aligned to %d", s.Addr, s.AddrAlign)
	}

	o := p.outputSize
	if hasData && inLoad && s.AddrAlign > 0 && o%s.AddrAlign != 0 {
		return fatalf("Section", int(s.Index), int64(o), "loadable section not aligned to %d", s.AddrAlign)
	}
	if !inLoad && hasData {
		o = alignUp(o, s.AddrAlign)
	}

	nameOff, ok := p.shstrtab.offsetOf(s.Name)
	if !ok {
		return fatalf("Section", int(s.Index), -1, "name %q not found in section string table", s.Name)
	}

	p.shdrs[s.Index] = Shdr{
		Index:      s.Index,
		NameOffset: nameOff,
		Offset:     o,
		Type:       s.Type,
		Flags:      s.Flags,
		Addr:       s.Addr,
		Size:       s.declaredSize(),
		Link:       s.Link,
		Info:       s.Info,
		AddrAlign:  s.AddrAlign,
		EntSize:    s.EntSize,
	}
	p.outputSize = o + uint64(len(s.Data))
	return nil
}
