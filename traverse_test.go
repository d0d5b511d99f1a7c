// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import "testing"

func TestUpdateSectionsPreservesOrderAndDescendsSegments(t *testing.T) {
	f := NewFile(ELFCLASS64, ELFDATA2LSB)
	f.Regions = []Region{
		ElfHeaderRegion{},
		SectionDataRegion{Section: &Section{Index: 1, Name: []byte("a")}},
		SegmentRegion{Segment: &Segment{
			Index:   0,
			MemSize: RelativeMemSize{},
			Regions: []Region{
				SectionDataRegion{Section: &Section{Index: 2, Name: []byte("b")}},
			},
		}},
		SectionDataRegion{Section: &Section{Index: 3, Name: []byte("c")}},
	}

	var seen []string
	UpdateSections(f, func(s *Section) (*Section, bool) {
		seen = append(seen, string(s.Name))
		return s, true
	})
	want := []string{"a", "b", "c"}
	if len(seen) != len(want) {
		t.Fatalf("visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestUpdateSectionsDeletes(t *testing.T) {
	f := NewFile(ELFCLASS64, ELFDATA2LSB)
	f.Regions = []Region{
		SectionDataRegion{Section: &Section{Index: 1, Name: []byte("keep")}},
		SectionDataRegion{Section: &Section{Index: 2, Name: []byte("drop")}},
	}
	UpdateSections(f, func(s *Section) (*Section, bool) {
		return s, string(s.Name) != "drop"
	})
	if len(f.Regions) != 1 {
		t.Fatalf("len(Regions) = %d, want 1", len(f.Regions))
	}
	sd, ok := f.Regions[0].(SectionDataRegion)
	if !ok || string(sd.Section.Name) != "keep" {
		t.Fatalf("remaining region = %+v, want section %q", f.Regions[0], "keep")
	}
}

func TestUpdateSegmentsDeletesWholeSubtree(t *testing.T) {
	f := NewFile(ELFCLASS64, ELFDATA2LSB)
	f.Regions = []Region{
		SegmentRegion{Segment: &Segment{
			Index:   0,
			MemSize: RelativeMemSize{},
			Regions: []Region{SectionDataRegion{Section: &Section{Index: 1, Name: []byte("inside")}}},
		}},
		RawRegion{Bytes: []byte("x")},
	}
	UpdateSegments(f, func(s *Segment) (*Segment, bool) {
		return s, s.Index != 0
	})
	if len(f.Regions) != 1 {
		t.Fatalf("len(Regions) = %d, want 1", len(f.Regions))
	}
	if _, ok := f.Regions[0].(RawRegion); !ok {
		t.Fatalf("remaining region = %+v, want RawRegion", f.Regions[0])
	}
}

func TestUpdateRegionsVisitsTopLevelAndSegmentChildren(t *testing.T) {
	f := NewFile(ELFCLASS64, ELFDATA2LSB)
	f.Regions = []Region{
		RawRegion{Bytes: []byte("a")},
		SegmentRegion{Segment: &Segment{
			Index:   0,
			MemSize: RelativeMemSize{},
			Regions: []Region{RawRegion{Bytes: []byte("b")}},
		}},
	}

	count := 0
	UpdateRegions(f, func(r Region) (Region, bool) {
		if _, ok := r.(RawRegion); ok {
			count++
		}
		return r, true
	})
	if count != 2 {
		t.Errorf("visited %d Raw regions, want 2", count)
	}
}
