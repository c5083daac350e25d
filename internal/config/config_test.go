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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultWorkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "glob: \"*.pyc\"\nmanifestPath: out.json\n")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Workers != DefaultWorkers {
		t.Fatalf("Workers = %d, want %d", c.Workers, DefaultWorkers)
	}
	if c.Glob != "*.pyc" {
		t.Fatalf("Glob = %q, want *.pyc", c.Glob)
	}
	if c.ManifestPath != "out.json" {
		t.Fatalf("ManifestPath = %q, want out.json", c.ManifestPath)
	}
}

func TestLoadExplicitWorkersAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "workers: 8\nopcodeOverrides:\n  LOAD_CONST: 100\n")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Workers != 8 {
		t.Fatalf("Workers = %d, want 8", c.Workers)
	}
	if c.OpcodeOverrides["LOAD_CONST"] != 100 {
		t.Fatalf("OpcodeOverrides[LOAD_CONST] = %d, want 100", c.OpcodeOverrides["LOAD_CONST"])
	}
}

func TestLoadLegacy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.yaml")
	writeFile(t, path, "LOAD_CONST: 100\nRETURN_VALUE: 83\n")

	overrides, err := LoadLegacy(path)
	if err != nil {
		t.Fatalf("LoadLegacy: %v", err)
	}
	if overrides["LOAD_CONST"] != 100 || overrides["RETURN_VALUE"] != 83 {
		t.Fatalf("got overrides %v", overrides)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load of missing file: want error, got nil")
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
