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

// Command pycretarget retargets a batch of Messiah-dialect .pyc
// files to canonical CPython 2.7 bytecode (10.3).
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gopyc/retarget/internal/bundle"
	"github.com/gopyc/retarget/internal/config"
	"github.com/gopyc/retarget/internal/manifest"
	"github.com/gopyc/retarget/internal/rlog"
	"github.com/gopyc/retarget/pycfile"
	"github.com/gopyc/retarget/retarget"
)

var (
	dashGlob         string
	dashOutDir       string
	dashWorkers      int
	dashManifest     string
	dashConfig       string
	dashLegacyConfig string
	dashBundleIn     string
	dashBundleOut    string
)

func init() {
	flag.StringVar(&dashGlob, "glob", "", "glob pattern of input .pyc files")
	flag.StringVar(&dashOutDir, "out", ".", "output directory for retargeted files")
	flag.IntVar(&dashWorkers, "workers", config.DefaultWorkers, "number of concurrent conversion workers")
	flag.StringVar(&dashManifest, "manifest", "", "path to write the run manifest JSON sidecar")
	flag.StringVar(&dashConfig, "config", "", "path to a YAML config file")
	flag.StringVar(&dashLegacyConfig, "legacy-config", "", "path to a legacy flat key/value opcode override file")
	flag.StringVar(&dashBundleIn, "bundle", "", "path to a zstd-compressed input bundle (overrides -glob)")
	flag.StringVar(&dashBundleOut, "bundle-out", "", "path to write a zstd-compressed output bundle")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func main() {
	flag.Parse()

	opmap, exp := loadOverrides()
	rt := retarget.NewRetargeter(opmap, exp)
	mf := manifest.New()

	switch {
	case dashBundleIn != "":
		runBundle(rt, mf)
	case dashGlob == "" && flag.NArg() == 2:
		runSingle(rt, mf, flag.Arg(0), flag.Arg(1))
	default:
		runGlob(rt, mf)
	}

	if dashManifest != "" {
		if err := mf.WriteFile(dashManifest); err != nil {
			exitf("writing manifest: %s\n", err)
		}
	}
}

// loadOverrides builds the opcode map and expansion table to use
// for the whole run from -config/-legacy-config, falling back to
// the built-in Messiah tables when neither is given (10.2, 10.8).
func loadOverrides() (retarget.OpcodeMap, retarget.ExpansionTable) {
	overrides := map[string]int{}
	if dashConfig != "" {
		c, err := config.Load(dashConfig)
		if err != nil {
			exitf("%s\n", err)
		}
		if dashWorkers == config.DefaultWorkers && c.Workers > 0 {
			dashWorkers = c.Workers
		}
		if dashGlob == "" {
			dashGlob = c.Glob
		}
		if dashManifest == "" {
			dashManifest = c.ManifestPath
		}
		for k, v := range c.OpcodeOverrides {
			overrides[k] = v
		}
	}
	if dashLegacyConfig != "" {
		legacy, err := config.LoadLegacy(dashLegacyConfig)
		if err != nil {
			exitf("%s\n", err)
		}
		for k, v := range legacy {
			overrides[k] = v
		}
	}
	if len(overrides) == 0 {
		return nil, nil
	}
	opmap, err := retarget.BuildOpcodeMap(overrides)
	if err != nil {
		exitf("opcode overrides: %s\n", err)
	}
	return opmap, nil
}

// runGlob fans dashGlob's matches out across a bounded worker pool,
// each worker owning its own Retargeter-derived conversion state per
// file (5, 10.3): no reader/writer/retargeter instance is shared
// across goroutines.
func runGlob(rt *retarget.Retargeter, mf *manifest.Manifest) {
	if dashGlob == "" {
		exitf("pycretarget: usage: pycretarget INPUT OUTPUT | -glob PATTERN | -bundle PATH\n")
	}
	matches, err := filepath.Glob(dashGlob)
	if err != nil {
		exitf("pycretarget: bad -glob pattern: %s\n", err)
	}

	jobs := make(chan string, len(matches))
	for _, m := range matches {
		jobs <- m
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < dashWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				convertFile(rt, mf, path)
			}
		}()
	}
	wg.Wait()
}

// convertFile reads path (via the mmap fast path when available),
// retargets it, and writes the result under dashOutDir.
func convertFile(rt *retarget.Retargeter, mf *manifest.Manifest, path string) {
	data, err := readFile(path)
	if err != nil {
		rlog.Errorf(path, "pycretarget.read", "%s", err)
		mf.RecordFailure(path, err)
		return
	}

	origName, out, err := pycfile.RetargetWith(data, rt.OpcodeMap, rt.Expansion)
	if err != nil {
		rlog.Errorf(path, "pycretarget.convert", "%s", err)
		mf.RecordFailure(path, err)
		return
	}

	outPath := filepath.Join(dashOutDir, filepath.Base(origName))
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		rlog.Errorf(path, "pycretarget.write", "%s", err)
		mf.RecordFailure(path, err)
		return
	}
	mf.RecordSuccess(path, outPath, out)
}

// runSingle retargets one file named explicitly on the command line,
// writing the result to the exact output path given rather than a
// directory (10.3's INPUT OUTPUT positional form, for one-off
// conversions outside a -glob batch).
func runSingle(rt *retarget.Retargeter, mf *manifest.Manifest, in, out string) {
	data, err := readFile(in)
	if err != nil {
		rlog.Errorf(in, "pycretarget.read", "%s", err)
		mf.RecordFailure(in, err)
		return
	}

	_, retargeted, err := pycfile.RetargetWith(data, rt.OpcodeMap, rt.Expansion)
	if err != nil {
		rlog.Errorf(in, "pycretarget.convert", "%s", err)
		mf.RecordFailure(in, err)
		return
	}

	if err := os.WriteFile(out, retargeted, 0o644); err != nil {
		rlog.Errorf(in, "pycretarget.write", "%s", err)
		mf.RecordFailure(in, err)
		return
	}
	mf.RecordSuccess(in, out, retargeted)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if mem, ok := mmap(f, info.Size()); ok {
		defer unmap(mem)
		out := make([]byte, len(mem))
		copy(out, mem)
		return out, nil
	}
	return os.ReadFile(path)
}

// runBundle streams every member of a zstd-compressed input bundle
// through the same per-file conversion path and, if -bundle-out is
// given, collects the results into a matching output bundle (10.4).
func runBundle(rt *retarget.Retargeter, mf *manifest.Manifest) {
	in, err := os.Open(dashBundleIn)
	if err != nil {
		exitf("pycretarget: %s\n", err)
	}
	defer in.Close()

	br, err := bundle.NewReader(in)
	if err != nil {
		exitf("pycretarget: %s\n", err)
	}
	defer br.Close()

	var bw *bundle.Writer
	if dashBundleOut != "" {
		out, err := os.Create(dashBundleOut)
		if err != nil {
			exitf("pycretarget: %s\n", err)
		}
		defer out.Close()
		bw, err = bundle.NewWriter(out)
		if err != nil {
			exitf("pycretarget: %s\n", err)
		}
		defer bw.Close()
	}

	for {
		name, data, err := br.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				rlog.Errorf(dashBundleIn, "pycretarget.bundle", "%s", err)
			}
			break
		}
		origName, out, err := pycfile.RetargetWith(data, rt.OpcodeMap, rt.Expansion)
		if err != nil {
			rlog.Errorf(name, "pycretarget.convert", "%s", err)
			mf.RecordFailure(name, err)
			continue
		}
		if bw != nil {
			if err := bw.WriteMember(filepath.Base(origName), out); err != nil {
				exitf("pycretarget: writing bundle member: %s\n", err)
			}
		}
		mf.RecordSuccess(name, origName, out)
	}
}
