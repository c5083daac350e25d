// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package rlog is the structured diagnostic logger shared by every
// component that needs to report a recovered error without failing
// the whole conversion (7). It generalizes the teacher's own
// fmt.Fprintf(os.Stderr, ...) + exitf idiom (cmd/sdb/main.go) into a
// package so more than one cmd/ can share it.
package rlog

import (
	"fmt"
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags)

// SetOutput redirects every subsequent record; tests use this to
// capture output instead of writing to stderr.
func SetOutput(w *log.Logger) {
	std = w
}

// Warnf reports a recovered, non-fatal condition for file during
// stage: write-through of an unknown opcode, a skipped jump fixup,
// and similar. One line per event, fields {file, stage, detail}.
func Warnf(file, stage, format string, args ...interface{}) {
	std.Printf("WARN  file=%s stage=%s detail=%q", file, stage, fmt.Sprintf(format, args...))
}

// Errorf reports a structural failure that aborts processing of a
// single file but not the whole batch run.
func Errorf(file, stage, format string, args ...interface{}) {
	std.Printf("ERROR file=%s stage=%s detail=%q", file, stage, fmt.Sprintf(format, args...))
}

// Fatalf reports an unrecoverable condition and terminates the
// process with exitCode, mirroring the teacher's exitf.
func Fatalf(exitCode int, format string, args ...interface{}) {
	std.Printf("FATAL %s", fmt.Sprintf(format, args...))
	os.Exit(exitCode)
}
