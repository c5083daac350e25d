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

// Package config loads the batch driver's YAML configuration (10.2).
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
	yamlv2 "gopkg.in/yaml.v2"
)

// Config is the batch driver's top-level configuration.
type Config struct {
	Workers         int            `json:"workers"`
	Glob            string         `json:"glob"`
	ManifestPath    string         `json:"manifestPath"`
	OpcodeOverrides map[string]int `json:"opcodeOverrides,omitempty"`
}

// DefaultWorkers is used when a loaded Config leaves Workers unset.
const DefaultWorkers = 4

// Load reads and unmarshals a YAML config file at path using
// sigs.k8s.io/yaml, the same JSON-tag-compatible decoder the
// teacher's own config-bearing packages use.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return &c, nil
}

// LoadLegacy reads the older flat key/value override file format
// (`-legacy-config`), kept for compatibility with batch scripts
// written before Config existed. It only ever set opcode overrides,
// so that is all this decodes.
func LoadLegacy(path string) (map[string]int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var overrides map[string]int
	if err := yamlv2.Unmarshal(b, &overrides); err != nil {
		return nil, fmt.Errorf("config: parsing legacy %s: %w", path, err)
	}
	return overrides, nil
}
