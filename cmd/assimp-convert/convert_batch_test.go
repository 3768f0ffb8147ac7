package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	assimp "github.com/alnah/go-assimp"
)

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	auto := min(max(runtime.GOMAXPROCS(0)/2, 1), maxAutoWorkers)
	tests := []struct {
		name string
		n    int
		jobs int
		want int
	}{
		{name: "explicit", n: 3, jobs: 10, want: 3},
		{name: "capped by jobs", n: 8, jobs: 2, want: 2},
		{name: "auto", n: 0, jobs: 100, want: auto},
		{name: "auto single job", n: 0, jobs: 1, want: 1},
		{name: "no jobs", n: 4, jobs: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolveWorkers(tt.n, tt.jobs); got != tt.want {
				t.Errorf("resolveWorkers(%d, %d) = %d, want %d", tt.n, tt.jobs, got, tt.want)
			}
		})
	}
}

func TestConvertBatch_KeepsOrderAndIsolatesFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.obj": "A",
		"b.obj": "B",
		"c.obj": "C",
	})
	conv := &fakeConverter{fail: map[string]*assimp.Error{
		"b.obj": {Code: assimp.CodeImportFailed, Message: "bad faces"},
	}}
	out := filepath.Join(dir, "out")
	jobs := []job{
		{Input: filepath.Join(dir, "a.obj"), OutDir: out},
		{Input: filepath.Join(dir, "b.obj"), OutDir: out},
		{Input: filepath.Join(dir, "c.obj"), OutDir: out},
	}

	results := convertBatch(context.Background(), conv, jobs, &settings{format: assimp.FormatSTL, workers: 3})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, r := range results {
		if r.InputPath != jobs[i].Input {
			t.Errorf("result[%d].InputPath = %q, want %q", i, r.InputPath, jobs[i].Input)
		}
	}
	if results[1].Err == nil || assimp.CodeOf(results[1].Err) != assimp.CodeImportFailed {
		t.Errorf("result[1].Err = %v, want ImportFailed", results[1].Err)
	}
	if got := readFile(t, filepath.Join(out, "a.stl")); got != "stl:A" {
		t.Errorf("a.stl = %q", got)
	}
	if got := readFile(t, filepath.Join(out, "c.stl")); got != "stl:C" {
		t.Errorf("c.stl = %q", got)
	}
}

func TestConvertBatch_CanceledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.obj": "A"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := &fakeConverter{}
	results := convertBatch(ctx, conv, []job{{Input: filepath.Join(dir, "a.obj"), OutDir: dir}}, &settings{format: assimp.FormatGLB})
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", results[0].Err)
	}
	if len(conv.inputs) != 0 {
		t.Error("converter called after cancellation")
	}
}

func TestConvertJob_RefusesToOverwriteInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"cube.glb": "original"})
	in := filepath.Join(dir, "cube.glb")

	r := convertJob(context.Background(), &fakeConverter{}, job{Input: in, OutDir: dir}, &settings{format: assimp.FormatGLB})
	if !errors.Is(r.Err, ErrOutputIsInput) {
		t.Fatalf("Err = %v, want ErrOutputIsInput", r.Err)
	}
	if got := readFile(t, in); got != "original" {
		t.Errorf("input rewritten to %q", got)
	}
}

func TestSameFile(t *testing.T) {
	t.Parallel()

	if !sameFile("models/../models/cube.glb", "models/cube.glb") {
		t.Error("cleaned paths should match")
	}
	if sameFile("cube.stl", "cube.glb") {
		t.Error("different names should not match")
	}
	if sameFile("cube.glb", "https://example.com/cube.glb") {
		t.Error("URL inputs never match local outputs")
	}
}

func TestPrintResults(t *testing.T) {
	t.Parallel()

	results := []jobResult{
		{InputPath: "a.obj", OutputPath: "a.glb", Duration: 1500 * time.Microsecond},
		{InputPath: "b.obj", Err: errors.New("boom")},
	}

	tests := []struct {
		name       string
		opts       rootOptions
		wantOut    []string
		notWantOut []string
	}{
		{
			name:    "default",
			wantOut: []string{"Created a.glb", "1 succeeded, 1 failed"},
		},
		{
			name:       "verbose",
			opts:       rootOptions{verbose: true},
			wantOut:    []string{"a.obj -> a.glb (2ms)", "1 succeeded, 1 failed"},
			notWantOut: []string{"Created"},
		},
		{
			name:       "quiet",
			opts:       rootOptions{quiet: true},
			notWantOut: []string{"Created", "succeeded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			summary := printResults(&stdout, &stderr, results, &tt.opts)

			if summary.Succeeded != 1 || summary.Failed != 1 || summary.FirstErr == nil {
				t.Errorf("summary = %+v", summary)
			}
			if !strings.Contains(stderr.String(), "FAILED b.obj: boom") {
				t.Errorf("stderr = %q, failures must always be reported", stderr.String())
			}
			for _, s := range tt.wantOut {
				if !strings.Contains(stdout.String(), s) {
					t.Errorf("stdout = %q, want %q", stdout.String(), s)
				}
			}
			for _, s := range tt.notWantOut {
				if strings.Contains(stdout.String(), s) {
					t.Errorf("stdout = %q, should not contain %q", stdout.String(), s)
				}
			}
		})
	}
}

func TestPrintResults_SingleResultHasNoSummary(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	printResults(&stdout, &stderr, []jobResult{{InputPath: "a.obj", OutputPath: "a.glb"}}, &rootOptions{})
	if strings.Contains(stdout.String(), "succeeded") {
		t.Errorf("stdout = %q, single conversions print no summary", stdout.String())
	}
}
