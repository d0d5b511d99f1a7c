// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

// UpdateRegions walks every region in file, descending into segments,
// and offers each one to fn. fn returns the region to keep in its
// place (ordinarily the same value, possibly modified) or false to
// delete it. Sibling order is preserved; fn is never called for the
// segments themselves, only for the leaves and sentinels a Segment
// or the file directly contains (spec.md §4.6).
func UpdateRegions(file *ElfFile, fn func(Region) (Region, bool)) {
	file.Regions = updateRegionList(file.Regions, fn)
}

func updateRegionList(regions []Region, fn func(Region) (Region, bool)) []Region {
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		if seg, ok := r.(SegmentRegion); ok {
			seg.Segment.Regions = updateRegionList(seg.Segment.Regions, fn)
			out = append(out, seg)
			continue
		}
		if replacement, keep := fn(r); keep {
			out = append(out, replacement)
		}
	}
	return out
}

// UpdateSections walks the full region tree, descending into
// segments, and offers the [Section] of each [SectionDataRegion] to
// fn. Only SectionDataRegion values are offered: [SectionNameTableRegion],
// [StrtabRegion], [SymtabRegion], and [GotRegion] are never passed to
// fn and are left untouched. fn returns the Section to keep in its
// place or false to delete the region entirely.
func UpdateSections(file *ElfFile, fn func(*Section) (*Section, bool)) {
	UpdateRegions(file, func(r Region) (Region, bool) {
		sd, ok := r.(SectionDataRegion)
		if !ok {
			return r, true
		}
		replacement, keep := fn(sd.Section)
		if !keep {
			return nil, false
		}
		return SectionDataRegion{Section: replacement}, true
	})
}

// UpdateSegments walks the full region tree, descending into nested
// segments, and offers each [Segment] to fn. fn returns the Segment
// to keep in its place or false to delete the [SegmentRegion]
// entirely (along with everything it contains). Nested segments are
// visited depth-first, innermost first, so fn always sees a segment's
// already-updated children.
func UpdateSegments(file *ElfFile, fn func(*Segment) (*Segment, bool)) {
	file.Regions = updateSegmentList(file.Regions, fn)
}

func updateSegmentList(regions []Region, fn func(*Segment) (*Segment, bool)) []Region {
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		seg, ok := r.(SegmentRegion)
		if !ok {
			out = append(out, r)
			continue
		}
		seg.Segment.Regions = updateSegmentList(seg.Segment.Regions, fn)
		replacement, keep := fn(seg.Segment)
		if !keep {
			continue
		}
		out = append(out, SegmentRegion{Segment: replacement})
	}
	return out
}
