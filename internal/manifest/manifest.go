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

// Package manifest records the inputs, outputs, and outcome of a
// single batch run of the retargeter, as a JSON sidecar (10.5).
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Entry records the outcome of retargeting a single input file.
type Entry struct {
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Digest string `json:"digest,omitempty"` // hex BLAKE2b-256 of the output bytes
	Error  string `json:"error,omitempty"`
}

// Manifest is the JSON sidecar for one batch run, tagged with a
// run ID so repeated runs over the same glob can be correlated in
// logs (10.5).
type Manifest struct {
	RunID string `json:"runId"`

	mu      sync.Mutex
	entries []Entry
}

// New starts a manifest for a new batch run, minting a fresh run ID.
func New() *Manifest {
	return &Manifest{RunID: uuid.NewString()}
}

// RecordSuccess appends a successful conversion's digest to the
// manifest. It is safe to call concurrently from multiple workers.
func (m *Manifest) RecordSuccess(input, output string, outputBytes []byte) {
	sum := blake2b.Sum256(outputBytes)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{
		Input:  input,
		Output: output,
		Digest: hex.EncodeToString(sum[:]),
	})
}

// RecordFailure appends a structural failure to the manifest.
func (m *Manifest) RecordFailure(input string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Input: input, Error: err.Error()})
}

// Entries returns a snapshot of the recorded entries in record
// order.
func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// manifestDoc is the on-disk JSON shape, keeping RunID alongside the
// entry list without exporting the mutex-guarded Manifest directly.
type manifestDoc struct {
	RunID   string  `json:"runId"`
	Entries []Entry `json:"entries"`
}

// WriteFile serializes the manifest to path as indented JSON.
func (m *Manifest) WriteFile(path string) error {
	doc := manifestDoc{RunID: m.RunID, Entries: m.Entries()}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}
