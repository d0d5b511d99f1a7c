// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package elf lays out and encodes ELF (Executable and Linkable
// Format) object files.
//
// Callers build an in-memory, editable tree of data regions
// (headers, segments, sections, string tables, symbol tables, raw
// bytes) with an [ElfFile] and an ordered list of [Region] values,
// then call [Plan] to resolve every file offset and forward
// reference into a [Layout], and [Emit] to turn that Layout into the
// final byte image.
//
// The package does not parse existing ELF bytes, apply relocations,
// interpret dynamic sections, or perform any file I/O: it is a pure
// transform from an editable tree to a byte sequence, and back only
// as far as the caller-facing accessors on [Layout] allow.
package elf
