// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

import "fmt"

// LayoutError reports a structural violation found while planning
// or emitting an ELF file (spec.md §7, "Fatal structural errors").
// These are always bugs in the tree the caller built: misaligned
// addresses, duplicate indices, offsets that don't agree with a
// segment's own alignment, and so on. The engine never attempts to
// recover from one; [Plan] and [Emit] return it and produce no
// partial output.
type LayoutError struct {
	// Region names the kind of region that triggered the error,
	// e.g. "Segment", "SectionHeaders", "Section".
	Region string

	// Index is the section or segment index involved, if any.
	// A negative value means "not applicable".
	Index int

	// Offset is the file offset involved, if any. A negative value
	// means "not applicable".
	Offset int64

	Msg string
}

func (e *LayoutError) Error() string {
	switch {
	case e.Index >= 0 && e.Offset >= 0:
		return fmt.Sprintf("elf: %s[%d] at offset %#x: %s", e.Region, e.Index, e.Offset, e.Msg)
	case e.Index >= 0:
		return fmt.Sprintf("elf: %s[%d]: %s", e.Region, e.Index, e.Msg)
	case e.Offset >= 0:
		return fmt.Sprintf("elf: %s at offset %#x: %s", e.Region, e.Offset, e.Msg)
	default:
		return fmt.Sprintf("elf: %s: %s", e.Region, e.Msg)
	}
}

func fatalf(region string, index int, offset int64, format string, args ...any) error {
	return &LayoutError{
		Region: region,
		Index:  index,
		Offset: offset,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// ValidationError reports a recoverable validation failure found
// while inspecting externally-supplied data that doesn't match an
// expected shape, such as [SectionAsGot] being given a section that
// isn't conformant GOT data (spec.md §7, "Recoverable validation").
// Unlike [LayoutError], callers are expected to encounter and handle
// this in normal operation.
type ValidationError struct {
	Op  string
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("elf: %s: %s", e.Op, e.Msg)
}

func invalidf(op, format string, args ...any) error {
	return &ValidationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
