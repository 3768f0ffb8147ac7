package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	assimp "github.com/alnah/go-assimp"
	"github.com/alnah/go-assimp/internal/fileutil"
	"github.com/alnah/go-assimp/internal/hints"
	"github.com/alnah/go-assimp/internal/rodengine"
)

// ErrDoctor is returned when doctor finds errors.
var ErrDoctor = errors.New("environment not ready")

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Backend  string       `json:"backend"`
	Engines  []engineInfo `json:"engines"`
	Chrome   *chromeInfo  `json:"chrome,omitempty"`
	Env      envInfo      `json:"environment"`
	System   systemInfo   `json:"system"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// engineInfo lists where one role's engine is looked for.
type engineInfo struct {
	Role       string          `json:"role"`
	Candidates []candidateInfo `json:"candidates"`
	Resolvable bool            `json:"resolvable"`
}

// candidateInfo is one location and what is known about it without
// loading it.
type candidateInfo struct {
	Location string `json:"location"`
	Status   string `json:"status"` // "found", "missing", "remote"
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	CacheDir      string `json:"cache_dir"`
	CacheWritable bool   `json:"cache_writable"`
	TempWritable  bool   `json:"temp_writable"`
}

func newDoctorCmd(env *Environment, root *rootOptions) *cobra.Command {
	f := &convertFlags{}
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that engines can be found and the environment is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSettings(cmd.Flags(), root, f, env)
			if err != nil {
				return err
			}

			result, err := runDoctor(s, env)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(env.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printDoctorResult(env.Stdout, result)
			}

			if result.Status == "errors" {
				return fmt.Errorf("%w: %d problem(s) found", ErrDoctor, len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	addEngineFlags(cmd.Flags(), &f.engine)
	return cmd
}

// runDoctor performs all diagnostic checks.
func runDoctor(s *settings, env *Environment) (*doctorResult, error) {
	result := &doctorResult{
		Status:  "ready",
		Backend: string(s.backend),
		Env:     envInfo{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}

	if err := checkEngines(result, s, env); err != nil {
		return nil, err
	}
	if s.backend == assimp.BackendBrowser {
		checkChrome(result, env)
	}
	checkEnvironment(result, s)
	checkSystem(result, s)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result, nil
}

// checkEngines lists every candidate per role. A role is resolvable when a
// local candidate exists or a remote one is configured; remote candidates
// are not fetched.
func checkEngines(result *doctorResult, s *settings, env *Environment) error {
	loader, err := env.NewLoader(s.engineOptions(nil)...)
	if err != nil {
		return err
	}
	defer func() { _ = loader.Close() }()

	locations, err := loader.Locations()
	if err != nil {
		return err
	}

	for _, role := range assimp.Roles() {
		info := engineInfo{Role: string(role)}
		for _, loc := range locations[role] {
			c := candidateInfo{Location: loc, Status: "missing"}
			switch {
			case fileutil.IsURL(loc):
				c.Status = "remote"
				info.Resolvable = true
			case fileutil.FileExists(strings.TrimPrefix(loc, "file://")):
				c.Status = "found"
				info.Resolvable = true
			}
			info.Candidates = append(info.Candidates, c)
		}
		if !info.Resolvable {
			result.Errors = append(result.Errors,
				fmt.Sprintf("No %s engine found in %d location(s)", role, len(info.Candidates)))
		}
		result.Engines = append(result.Engines, info)
	}
	return nil
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult, env *Environment) {
	info := &chromeInfo{Sandbox: !rodengine.NoSandbox()}
	result.Chrome = info

	chromePath := os.Getenv("ROD_BROWSER_BIN")
	if chromePath == "" {
		var found bool
		chromePath, found = env.LookChrome()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; a managed Chromium will be downloaded on first use")
			return
		}
	}
	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	info.Found = true
	info.Path = chromePath
	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- located browser binary
	if err == nil {
		info.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, s *settings) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if s.backend == assimp.BackendBrowser && (result.Env.Container || result.Env.CI) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer reports whether doctor runs inside a container and which
// signal said so. ASSIMP_CONTAINER=1 forces detection for images that
// hide the usual markers.
func isContainer() (bool, string) {
	switch {
	case os.Getenv("ASSIMP_CONTAINER") == "1":
		return true, "ASSIMP_CONTAINER=1"
	case hints.IsInContainer():
		return true, "/.dockerenv"
	case os.Getenv("container") != "":
		return true, "container=" + os.Getenv("container")
	case os.Getenv("KUBERNETES_SERVICE_HOST") != "":
		return true, "kubernetes"
	}
	return false, ""
}

// checkSystem verifies the engine cache and temp directory are writable.
func checkSystem(result *doctorResult, s *settings) {
	result.System.CacheDir = s.effectiveCacheDir()
	if err := os.MkdirAll(result.System.CacheDir, dirPermissions); err == nil && fileutil.DirWritable(result.System.CacheDir) {
		result.System.CacheWritable = true
	} else if s.backend == assimp.BackendProcess {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Engine cache not writable: %s; remote engines cannot be downloaded", result.System.CacheDir))
	}

	if fileutil.DirWritable(os.TempDir()) {
		result.System.TempWritable = true
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %s", os.TempDir()))
	}
}

// Report markers.
const (
	markOK    = "[OK]"
	markWarn  = "[WARN]"
	markError = "[ERROR]"
)

// mark picks the marker for a check; failures use bad.
func mark(ok bool, bad string) string {
	if ok {
		return markOK
	}
	return bad
}

// printDoctorResult writes the report grouped by section, then the
// collected warnings and errors and a status line.
func printDoctorResult(w io.Writer, r *doctorResult) {
	line := func(m, format string, args ...any) {
		fmt.Fprintf(w, "  %-7s "+format+"\n", append([]any{m}, args...)...)
	}

	fmt.Fprintf(w, "assimp-convert doctor\n\nEngines (%s backend)\n", r.Backend)
	for _, e := range r.Engines {
		line(mark(e.Resolvable, markError), "%s", e.Role)
		for _, c := range e.Candidates {
			line("", "%-7s %s", c.Status, c.Location)
		}
	}

	if c := r.Chrome; c != nil {
		fmt.Fprintln(w, "\nBrowser")
		switch {
		case !c.Found:
			line(markWarn, "not found")
		case c.Version != "":
			line(markOK, "%s (%s)", c.Path, c.Version)
		default:
			line(markOK, "%s", c.Path)
		}
		sandbox := "on"
		if !c.Sandbox {
			sandbox = "off (ROD_NO_SANDBOX=1)"
		}
		line(markOK, "sandbox %s", sandbox)
	}

	fmt.Fprintln(w, "\nEnvironment")
	line(markOK, "%s/%s", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		line(markOK, "container (%s)", r.Env.ContainerHint)
	}
	if r.Env.CI {
		line(markOK, "CI")
	}

	fmt.Fprintln(w, "\nSystem")
	line(mark(r.System.CacheWritable, markWarn), "engine cache %s", r.System.CacheDir)
	line(mark(r.System.TempWritable, markError), "temp directory %s", os.TempDir())

	for _, group := range []struct {
		title string
		m     string
		items []string
	}{
		{"Warnings", markWarn, r.Warnings},
		{"Errors", markError, r.Errors},
	} {
		if len(group.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", group.title)
		for _, item := range group.items {
			line(group.m, "%s", item)
		}
	}

	fmt.Fprintln(w)
	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
