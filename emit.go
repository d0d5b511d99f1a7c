// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import (
	"encoding/binary"

	"golang.org/x/crypto/cryptobyte"
)

// Emit walks file's region tree a second time, using the offsets
// layout already resolved, and produces the final byte image. layout
// must have been produced by [Plan] on this same (unmutated) file;
// Emit does not re-derive offsets, it only places bytes at the
// offsets layout already recorded, so any divergence between the two
// walks is a bug in the engine rather than in the caller's tree.
func Emit(file *ElfFile, layout *Layout) ([]byte, error) {
	e := &emitter{
		class:  file.Header.Class,
		order:  file.Header.Data.byteOrder(),
		layout: layout,
		b:      cryptobyte.NewBuilder(make([]byte, 0, layout.OutputSize)),
	}
	if err := e.walk(file.Regions, false); err != nil {
		return nil, err
	}
	if err := e.padTo(layout.OutputSize); err != nil {
		return nil, err
	}
	return e.b.Bytes()
}

type emitter struct {
	class  Class
	order  binary.ByteOrder
	layout *Layout
	b      *cryptobyte.Builder
	cur    uint64
}

func (e *emitter) padTo(target uint64) error {
	if target < e.cur {
		return fatalf("Emit", -1, int64(e.cur), "emission cursor %d already past target offset %d", e.cur, target)
	}
	if target > e.cur {
		e.b.AddBytes(make([]byte, target-e.cur))
		e.cur = target
	}
	return nil
}

func (e *emitter) write(n uint64, fn func(b *cryptobyte.Builder)) {
	fn(e.b)
	e.cur += n
}

func (e *emitter) walk(regions []Region, inLoad bool) error {
	for _, r := range regions {
		if err := e.walkOne(r, inLoad); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) walkOne(r Region, inLoad bool) error {
	switch v := r.(type) {
	case ElfHeaderRegion:
		if err := e.padTo(0); err != nil {
			return err
		}
		ident := [16]byte{0x7F, 'E', 'L', 'F', byte(e.layout.Header.Class), byte(e.layout.Header.Data), 1, e.layout.Header.OSABI, e.layout.Header.ABIVersion}
		rec := ehdrRecord(e.class)
		e.write(16+uint64(rec.size()), func(b *cryptobyte.Builder) {
			b.AddBytes(ident[:])
			rec.write(b, e.order, ehdrValues{
				Type:      uint64(e.layout.Header.Type),
				Machine:   uint64(e.layout.Header.Machine),
				Version:   uint64(e.layout.Header.Version),
				Entry:     e.layout.Header.Entry,
				Phoff:     e.layout.PhdrTableOffset,
				Shoff:     e.layout.ShdrTableOffset,
				Flags:     uint64(e.layout.Header.Flags),
				Ehsize:    ehdrSize(e.class),
				Phentsize: phdrEntrySize(e.class),
				Phnum:     uint64(e.layout.PhdrCount),
				Shentsize: shdrEntrySize(e.class),
				Shnum:     uint64(e.layout.ShdrCount),
				Shstrndx:  uint64(e.layout.Shstrndx),
			})
		})

	case SegmentHeadersRegion:
		if err := e.padTo(e.layout.PhdrTableOffset); err != nil {
			return err
		}
		rec := phdrRecord(e.class)
		for _, ph := range e.layout.Phdrs() {
			e.write(uint64(rec.size()), func(b *cryptobyte.Builder) {
				rec.write(b, e.order, phdrValues{
					Type:   uint64(ph.Type),
					Flags:  uint64(ph.Flags),
					Offset: ph.Offset,
					Vaddr:  ph.VirtAddr,
					Paddr:  ph.PhysAddr,
					Filesz: ph.FileSize,
					Memsz:  ph.MemSize,
					Align:  ph.Align,
				})
			})
		}

	case SectionHeadersRegion:
		if err := e.padTo(e.layout.ShdrTableOffset); err != nil {
			return err
		}
		rec := shdrRecord(e.class)
		e.write(uint64(rec.size()), func(b *cryptobyte.Builder) {
			rec.write(b, e.order, shdrValues{})
		})
		for _, idx := range e.layout.shdrOrder() {
			sh := e.layout.shdrs[idx]
			e.write(uint64(rec.size()), func(b *cryptobyte.Builder) {
				rec.write(b, e.order, shdrValues{
					Name:      sh.NameOffset,
					Type:      uint64(sh.Type),
					Flags:     sh.Flags,
					Addr:      sh.Addr,
					Offset:    quirkShdrOffset(sh),
					Size:      sh.Size,
					Link:      uint64(sh.Link),
					Info:      uint64(sh.Info),
					Addralign: sh.AddrAlign,
					Entsize:   sh.EntSize,
				})
			})
		}

	case SegmentRegion:
		return e.walk(v.Segment.Regions, true)

	case SectionNameTableRegion:
		return e.emitSectionBytes(v.Index, e.layout.ShstrtabPayload)

	case StrtabRegion:
		return e.emitSectionBytes(v.Index, e.layout.StrtabPayload)

	case SymtabRegion:
		tmp := &stringTable{offsets: e.layout.StrtabOffsets}
		payload, err := buildSymtabPayload(e.class, e.order, tmp, v.Table)
		if err != nil {
			return err
		}
		return e.emitSectionBytes(v.Table.Index, payload)

	case GotRegion:
		sec := GotToSection(v.Got, e.class, e.order)
		return e.emitSectionBytes(v.Got.Index, sec.Data)

	case SectionDataRegion:
		return e.emitSectionBytes(v.Section.Index, v.Section.Data)

	case RawRegion:
		e.write(uint64(len(v.Bytes)), func(b *cryptobyte.Builder) {
			b.AddBytes(v.Bytes)
		})
	}
	return nil
}

// emitSectionBytes pads to the file offset layout recorded for
// section index idx, then writes data verbatim.
func (e *emitter) emitSectionBytes(idx uint16, data []byte) error {
	sh, ok := e.layout.shdrs[idx]
	if !ok {
		return fatalf("Section", int(idx), -1, "no Shdr recorded for section index %d", idx)
	}
	if err := e.padTo(sh.Offset); err != nil {
		return err
	}
	e.write(uint64(len(data)), func(b *cryptobyte.Builder) {
		b.AddBytes(data)
	})
	return nil
}

// quirkShdrOffset reproduces the source engine's adjustment of
// sh_offset for sections with no file content: loaders compare addr
// and offset modulo addralign even for empty sections, so the
// recorded offset is nudged to agree even though no bytes actually
// live there. This is applied only to the value written into the
// section-header table, never to the Layout's own offset accounting
// (spec.md §9).
func quirkShdrOffset(sh Shdr) uint64 {
	if sh.Size != 0 || sh.AddrAlign <= 1 {
		return sh.Offset
	}
	want := sh.Addr % sh.AddrAlign
	got := sh.Offset % sh.AddrAlign
	if want == got {
		return sh.Offset
	}
	return sh.Offset + (want-got+sh.AddrAlign)%sh.AddrAlign
}
