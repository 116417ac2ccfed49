//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binLint = "golangci-lint"

// Lint checks formatting, then runs go vet and golangci-lint.
func Lint() error {
	mg.Deps(Fmtcheck)
	if err := sh.RunV(binGo, "vet", "./cmd/...", "./internal/...", "./pkg/..."); err != nil {
		return err
	}
	return sh.RunV(binLint, "run", "./...")
}

// Fmtcheck fails when any source file needs gofmt.
func Fmtcheck() error {
	out, err := sh.Output("gofmt", "-l", "cmd", "internal", "pkg", "magefiles")
	if err != nil {
		return err
	}
	if files := strings.TrimSpace(out); files != "" {
		return fmt.Errorf("files need gofmt:\n%s", files)
	}
	return nil
}
