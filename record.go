// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import (
	"encoding/binary"

	"golang.org/x/crypto/cryptobyte"
)

// recordField is one named, fixed-width field of an ELF header,
// program-header, section-header, or symbol-table record. get
// extracts the field's value (as a uint64, truncated to width at
// write time) from a value of type T.
//
// This is the "lens-based field access" of spec.md §9 expressed as
// plain accessor pairs: width plus a getter, not a special
// abstraction.
type recordField[T any] struct {
	width int
	get   func(T) uint64
}

// record is an ordered list of fields describing the on-disk shape
// of one kind of ELF table entry for one ELF class. The 64-bit and
// 32-bit program-header layouts differ not only in field width but
// in field ordering (spec.md §4.2); encoding that as an ordered
// field list, rather than a fixed struct, lets both shapes share
// the same write and size logic.
type record[T any] []recordField[T]

// size returns the total encoded size of the record, in bytes.
func (r record[T]) size() int {
	n := 0
	for _, f := range r {
		n += f.width
	}
	return n
}

// write appends the record's fields, in order, to b, encoding each
// with the given byte order.
func (r record[T]) write(b *cryptobyte.Builder, order binary.ByteOrder, v T) {
	for _, f := range r {
		var buf [8]byte
		putWidth(buf[:f.width], order, f.width, f.get(v))
		b.AddBytes(buf[:f.width])
	}
}

func putWidth(buf []byte, order binary.ByteOrder, width int, val uint64) {
	switch width {
	case 1:
		buf[0] = byte(val)
	case 2:
		order.PutUint16(buf, uint16(val))
	case 4:
		order.PutUint32(buf, uint32(val))
	case 8:
		order.PutUint64(buf, val)
	}
}

// readWidth is the inverse of putWidth, used when recovering values
// from externally-supplied section data (e.g. [SectionAsGot]).
func readWidth(buf []byte, order binary.ByteOrder, width int) uint64 {
	switch width {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	return 0
}

// ehdrValues holds the non-identification fields of an ELF header,
// widened to uint64 regardless of the target class; [ehdr32]/[ehdr64]
// narrow each field to its class-specific width at write time.
type ehdrValues struct {
	Type      uint64
	Machine   uint64
	Version   uint64
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint64
	Ehsize    uint64
	Phentsize uint64
	Phnum     uint64
	Shentsize uint64
	Shnum     uint64
	Shstrndx  uint64
}

var ehdr32 = record[ehdrValues]{
	{2, func(v ehdrValues) uint64 { return v.Type }},
	{2, func(v ehdrValues) uint64 { return v.Machine }},
	{4, func(v ehdrValues) uint64 { return v.Version }},
	{4, func(v ehdrValues) uint64 { return v.Entry }},
	{4, func(v ehdrValues) uint64 { return v.Phoff }},
	{4, func(v ehdrValues) uint64 { return v.Shoff }},
	{4, func(v ehdrValues) uint64 { return v.Flags }},
	{2, func(v ehdrValues) uint64 { return v.Ehsize }},
	{2, func(v ehdrValues) uint64 { return v.Phentsize }},
	{2, func(v ehdrValues) uint64 { return v.Phnum }},
	{2, func(v ehdrValues) uint64 { return v.Shentsize }},
	{2, func(v ehdrValues) uint64 { return v.Shnum }},
	{2, func(v ehdrValues) uint64 { return v.Shstrndx }},
}

var ehdr64 = record[ehdrValues]{
	{2, func(v ehdrValues) uint64 { return v.Type }},
	{2, func(v ehdrValues) uint64 { return v.Machine }},
	{4, func(v ehdrValues) uint64 { return v.Version }},
	{8, func(v ehdrValues) uint64 { return v.Entry }},
	{8, func(v ehdrValues) uint64 { return v.Phoff }},
	{8, func(v ehdrValues) uint64 { return v.Shoff }},
	{4, func(v ehdrValues) uint64 { return v.Flags }},
	{2, func(v ehdrValues) uint64 { return v.Ehsize }},
	{2, func(v ehdrValues) uint64 { return v.Phentsize }},
	{2, func(v ehdrValues) uint64 { return v.Phnum }},
	{2, func(v ehdrValues) uint64 { return v.Shentsize }},
	{2, func(v ehdrValues) uint64 { return v.Shnum }},
	{2, func(v ehdrValues) uint64 { return v.Shstrndx }},
}

func ehdrRecord(class Class) record[ehdrValues] {
	if class == ELFCLASS32 {
		return ehdr32
	}
	return ehdr64
}

// phdrValues holds the fields of a program-header entry, widened to
// uint64; field order (not just width) differs between classes, so
// [phdr32] and [phdr64] each list the fields in their own order.
type phdrValues struct {
	Type   uint64
	Flags  uint64
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

// phdr32 is p_type, p_offset, p_vaddr, p_paddr, p_filesz, p_memsz,
// p_flags, p_align: p_flags is the 7th field.
var phdr32 = record[phdrValues]{
	{4, func(v phdrValues) uint64 { return v.Type }},
	{4, func(v phdrValues) uint64 { return v.Offset }},
	{4, func(v phdrValues) uint64 { return v.Vaddr }},
	{4, func(v phdrValues) uint64 { return v.Paddr }},
	{4, func(v phdrValues) uint64 { return v.Filesz }},
	{4, func(v phdrValues) uint64 { return v.Memsz }},
	{4, func(v phdrValues) uint64 { return v.Flags }},
	{4, func(v phdrValues) uint64 { return v.Align }},
}

// phdr64 is p_type, p_flags, p_offset, p_vaddr, p_paddr, p_filesz,
// p_memsz, p_align: p_flags is the 2nd field.
var phdr64 = record[phdrValues]{
	{4, func(v phdrValues) uint64 { return v.Type }},
	{4, func(v phdrValues) uint64 { return v.Flags }},
	{8, func(v phdrValues) uint64 { return v.Offset }},
	{8, func(v phdrValues) uint64 { return v.Vaddr }},
	{8, func(v phdrValues) uint64 { return v.Paddr }},
	{8, func(v phdrValues) uint64 { return v.Filesz }},
	{8, func(v phdrValues) uint64 { return v.Memsz }},
	{8, func(v phdrValues) uint64 { return v.Align }},
}

func phdrRecord(class Class) record[phdrValues] {
	if class == ELFCLASS32 {
		return phdr32
	}
	return phdr64
}

// shdrValues holds the fields of a section-header entry, widened to
// uint64. Field order is the same for both classes; only the width
// of several fields changes.
type shdrValues struct {
	Name      uint64
	Type      uint64
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint64
	Info      uint64
	Addralign uint64
	Entsize   uint64
}

var shdr32 = record[shdrValues]{
	{4, func(v shdrValues) uint64 { return v.Name }},
	{4, func(v shdrValues) uint64 { return v.Type }},
	{4, func(v shdrValues) uint64 { return v.Flags }},
	{4, func(v shdrValues) uint64 { return v.Addr }},
	{4, func(v shdrValues) uint64 { return v.Offset }},
	{4, func(v shdrValues) uint64 { return v.Size }},
	{4, func(v shdrValues) uint64 { return v.Link }},
	{4, func(v shdrValues) uint64 { return v.Info }},
	{4, func(v shdrValues) uint64 { return v.Addralign }},
	{4, func(v shdrValues) uint64 { return v.Entsize }},
}

var shdr64 = record[shdrValues]{
	{4, func(v shdrValues) uint64 { return v.Name }},
	{4, func(v shdrValues) uint64 { return v.Type }},
	{8, func(v shdrValues) uint64 { return v.Flags }},
	{8, func(v shdrValues) uint64 { return v.Addr }},
	{8, func(v shdrValues) uint64 { return v.Offset }},
	{8, func(v shdrValues) uint64 { return v.Size }},
	{4, func(v shdrValues) uint64 { return v.Link }},
	{4, func(v shdrValues) uint64 { return v.Info }},
	{8, func(v shdrValues) uint64 { return v.Addralign }},
	{8, func(v shdrValues) uint64 { return v.Entsize }},
}

func shdrRecord(class Class) record[shdrValues] {
	if class == ELFCLASS32 {
		return shdr32
	}
	return shdr64
}

// symValues holds the fields of a .symtab entry, widened to uint64.
// Field order differs between classes: 32-bit keeps value and size
// adjacent to name, while 64-bit moves the 8-byte value and size
// fields to the end to respect natural alignment (spec.md §4.3).
type symValues struct {
	Name   uint64
	Info   uint64
	Other  uint64
	Shndx  uint64
	Value  uint64
	Size   uint64
}

var sym32 = record[symValues]{
	{4, func(v symValues) uint64 { return v.Name }},
	{4, func(v symValues) uint64 { return v.Value }},
	{4, func(v symValues) uint64 { return v.Size }},
	{1, func(v symValues) uint64 { return v.Info }},
	{1, func(v symValues) uint64 { return v.Other }},
	{2, func(v symValues) uint64 { return v.Shndx }},
}

var sym64 = record[symValues]{
	{4, func(v symValues) uint64 { return v.Name }},
	{1, func(v symValues) uint64 { return v.Info }},
	{1, func(v symValues) uint64 { return v.Other }},
	{2, func(v symValues) uint64 { return v.Shndx }},
	{8, func(v symValues) uint64 { return v.Value }},
	{8, func(v symValues) uint64 { return v.Size }},
}

func symRecord(class Class) record[symValues] {
	if class == ELFCLASS32 {
		return sym32
	}
	return sym64
}
