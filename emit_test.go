// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import (
	"bytes"
	stdelf "debug/elf"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildSampleFile() *ElfFile {
	f := NewFile(ELFCLASS64, ELFDATA2LSB)
	f.Header.Type = 2    // ET_EXEC
	f.Header.Machine = 0x3e // EM_X86_64
	f.Header.Version = 1

	f.Regions = []Region{
		ElfHeaderRegion{},
		SectionDataRegion{Section: &Section{
			Index:     1,
			Name:      []byte(".text"),
			Type:      SHT_PROGBITS,
			Flags:     0x6, // SHF_ALLOC|SHF_EXECINSTR
			AddrAlign: 1,
			Data:      []byte{0xC3},
		}},
		SectionNameTableRegion{Index: 2},
		SectionHeadersRegion{},
	}
	return f
}

func TestEmitRoundTripsThroughStdlibDebugElf(t *testing.T) {
	f := buildSampleFile()

	layout, err := Plan(f)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	data, err := Emit(f, layout)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if uint64(len(data)) != layout.Size() {
		t.Fatalf("len(data) = %d, want layout.Size() = %d", len(data), layout.Size())
	}
	if !bytes.Equal(data[:4], []byte{0x7F, 'E', 'L', 'F'}) {
		t.Fatalf("bad magic: %v", data[:4])
	}

	parsed, err := stdelf.NewFile(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("stdlib debug/elf failed to parse emitted image: %v", err)
	}
	defer parsed.Close()

	if parsed.Class != stdelf.ELFCLASS64 {
		t.Errorf("Class = %v, want ELFCLASS64", parsed.Class)
	}
	if parsed.Data != stdelf.ELFDATA2LSB {
		t.Errorf("Data = %v, want ELFDATA2LSB", parsed.Data)
	}

	var names []string
	for _, s := range parsed.Sections {
		names = append(names, s.Name)
	}
	want := []string{"", ".text", ".shstrtab"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("section names mismatch (-want +got):\n%s", diff)
	}

	text := parsed.Section(".text")
	if text == nil {
		t.Fatal("no .text section found")
	}
	gotData, err := text.Data()
	if err != nil {
		t.Fatalf("reading .text data: %v", err)
	}
	if diff := cmp.Diff([]byte{0xC3}, gotData); diff != "" {
		t.Errorf(".text data mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitIsDeterministic(t *testing.T) {
	f := buildSampleFile()

	l1, err := Plan(f)
	if err != nil {
		t.Fatal(err)
	}
	d1, err := Emit(f, l1)
	if err != nil {
		t.Fatal(err)
	}

	l2, err := Plan(f)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Emit(f, l2)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(d1, d2) {
		t.Fatal("Plan+Emit is not deterministic across repeated calls")
	}
}

func TestBuildConvenienceWrapper(t *testing.T) {
	f := buildSampleFile()
	data, err := Build(f)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Build returned no data")
	}
}
