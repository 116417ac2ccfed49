//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, selftest).
type Test mg.Namespace

// All runs every package test with the race detector.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs the tests of the core packages only, skipping the CLI and the
// loopback end-to-end suites.
func (Test) Unit() error {
	return sh.RunV(binGo, "test",
		"./pkg/...",
		"./internal/writeback/...",
		"./internal/scenario/...",
		"./internal/sqlite/...",
		"./internal/store/...",
		"./internal/extract/...",
	)
}

// Selftest builds the binary and runs it against the loopback backend.
func (Test) Selftest() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "selftest")
}
