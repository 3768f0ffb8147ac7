package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	assimp "github.com/alnah/go-assimp"
	"github.com/alnah/go-assimp/internal/fileutil"
)

// Sentinel errors for input discovery.
var (
	ErrNoInput              = errors.New("no input specified")
	ErrUnsupportedExtension = errors.New("unrecognized model extension")
)

// companions are side files read with a primary input of the given
// extension when they sit beside it under the same base name.
var companions = map[string][]string{
	"obj":  {"mtl"},
	"gltf": {"bin"},
}

// job is a single model to convert.
type job struct {
	Input  string // local path or http(s) URL
	OutDir string // directory the output is written to
}

// discoverJobs expands args into jobs. Files must carry a recognized model
// extension; directories yield every recognized file, descending only
// when recursive is set; URLs are taken as is.
func discoverJobs(args []string, outputDir string, recursive bool) ([]job, error) {
	if len(args) == 0 {
		return nil, ErrNoInput
	}

	var jobs []job
	for _, arg := range args {
		if fileutil.IsURL(arg) {
			jobs = append(jobs, job{Input: arg, OutDir: orDefault(outputDir, ".")})
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !assimp.IsSupportedInput(arg) {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, arg)
			}
			jobs = append(jobs, job{Input: arg, OutDir: orDefault(outputDir, filepath.Dir(arg))})
			continue
		}

		found, err := walkModels(arg, outputDir, recursive)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("%w: no models found in %s", ErrNoInput, arg)
		}
		jobs = append(jobs, found...)
	}
	return jobs, nil
}

// walkModels lists recognized models under root in lexical order. With an
// output directory the relative layout under root is mirrored.
func walkModels(root, outputDir string, recursive bool) ([]job, error) {
	var jobs []job
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() {
			if path != root && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !assimp.IsSupportedInput(path) {
			return nil
		}

		outDir := filepath.Dir(path)
		if outputDir != "" {
			outDir = outputDir
			if rel, err := filepath.Rel(root, filepath.Dir(path)); err == nil {
				outDir = filepath.Join(outputDir, rel)
			}
		}
		jobs = append(jobs, job{Input: path, OutDir: outDir})
		return nil
	})
	return jobs, err
}

// sourceFor returns the input source for a job. Local models with
// companions are read into a FileSet with the model first.
func sourceFor(input string) (assimp.InputSource, error) {
	if fileutil.IsURL(input) {
		return assimp.URL(input), nil
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input), "."))
	base := strings.TrimSuffix(input, filepath.Ext(input))
	var sides []string
	for _, side := range companions[ext] {
		if p := base + "." + side; fileutil.FileExists(p) {
			sides = append(sides, p)
		}
	}
	if len(sides) == 0 {
		return assimp.URL(input), nil
	}

	set := assimp.FileSet{}
	for _, p := range append([]string{input}, sides...) {
		data, err := os.ReadFile(p) // #nosec G304 -- discovered path
		if err != nil {
			return nil, err
		}
		set.Files = append(set.Files, assimp.NamedBuffer{Name: filepath.Base(p), Data: data})
	}
	return set, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
