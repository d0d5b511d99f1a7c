// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package elf

// Build is a convenience wrapper around [Plan] followed by [Emit]
// for callers that only want the final bytes and have no use for the
// intermediate [Layout].
func Build(file *ElfFile) ([]byte, error) {
	layout, err := Plan(file)
	if err != nil {
		return nil, err
	}
	return Emit(file, layout)
}
