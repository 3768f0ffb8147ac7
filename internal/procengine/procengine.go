// Package procengine runs conversions through the assimp command-line tool.
//
// The bootstrap asset is the assimp executable itself. Remote candidates
// are downloaded once into a content-addressed cache; local candidates are
// used in place. Each conversion runs in a fresh temporary directory:
//
//	{tmp}/in/{file0} {file1} ...   buffer 0 is the primary input
//	{tmp}/out/{base}.{ext}         written by "assimp export"
//
// Every file found in the output directory is returned, primary first.
package procengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alnah/go-assimp/internal/engine"
	"github.com/alnah/go-assimp/internal/locator"
)

// Sentinel errors for the process backend.
var (
	ErrNotExecutable = errors.New("bootstrap is not an executable file")
	ErrEmptyFileList = errors.New("file list is empty")
)

// File permission constants.
const (
	dirPermissions = 0o750
	binPermissions = 0o755 // #nosec G302 -- cached engine must be executable
)

// BinaryName returns the platform's file name of the assimp tool.
func BinaryName() string {
	if runtime.GOOS == "windows" {
		return "assimp.exe"
	}
	return "assimp"
}

// PathCandidates returns the assimp tool found on PATH, if any.
func PathCandidates() []string {
	p, err := exec.LookPath("assimp")
	if err != nil {
		return nil
	}
	return []string{p}
}

// DefaultCacheDir returns the directory downloaded binaries are cached in.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "go-assimp", "engines")
}

// Config configures a Backend.
type Config struct {
	CacheDir string           // "" uses DefaultCacheDir
	Fetcher  *locator.Fetcher // nil uses locator.NewFetcher(nil)
	Runner   Runner           // nil runs real subprocesses
}

// Backend injects assimp executables and creates instances bound to them.
// It implements engine.Injector and is safe for concurrent use.
type Backend struct {
	cacheDir string
	fetcher  *locator.Fetcher
	runner   Runner
}

// New creates a Backend.
func New(cfg Config) *Backend {
	b := &Backend{cacheDir: cfg.CacheDir, fetcher: cfg.Fetcher, runner: cfg.Runner}
	if b.cacheDir == "" {
		b.cacheDir = DefaultCacheDir()
	}
	if b.fetcher == nil {
		b.fetcher = locator.NewFetcher(nil)
	}
	if b.runner == nil {
		b.runner = osRunner{}
	}
	return b
}

// Inject makes the executable at loc available and registers a factory for it.
func (b *Backend) Inject(ctx context.Context, loc string, register func(engine.Factory)) error {
	bin, err := b.install(ctx, loc)
	if err != nil {
		return err
	}
	register(func(ctx context.Context, _ engine.FactoryOptions) (engine.Instance, error) {
		return &Instance{bin: bin, runner: b.runner}, nil
	})
	return nil
}

// install returns a local executable path for loc, downloading remote
// locations into the cache.
func (b *Backend) install(ctx context.Context, loc string) (string, error) {
	if !locator.IsURL(loc) {
		path := strings.TrimPrefix(loc, "file://")
		return path, checkExecutable(path)
	}

	data, err := b.fetcher.Fetch(ctx, loc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	dir := filepath.Join(b.cacheDir, hex.EncodeToString(sum[:]))
	bin := filepath.Join(dir, BinaryName())
	if checkExecutable(bin) == nil {
		return bin, nil
	}

	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("caching %s: %w", loc, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("caching %s: %w", loc, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("caching %s: %w", loc, err)
	}
	if err := os.Chmod(tmp.Name(), binPermissions); err != nil {
		return "", fmt.Errorf("caching %s: %w", loc, err)
	}
	if err := os.Rename(tmp.Name(), bin); err != nil {
		return "", fmt.Errorf("caching %s: %w", loc, err)
	}
	return bin, nil
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", locator.ErrNotFound, path)
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotExecutable, path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s", ErrNotExecutable, path)
	}
	return nil
}

// Instance is one assimp executable bound to a loader slot.
type Instance struct {
	bin    string
	runner Runner
}

// Binary returns the executable path.
func (i *Instance) Binary() string {
	return i.bin
}

// Ready runs "assimp version" and requires a zero exit status.
func (i *Instance) Ready(ctx context.Context) error {
	code, out, err := i.runner.Run(ctx, i.bin, []string{"version"}, "")
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrNotReady, err)
	}
	if code != 0 {
		return fmt.Errorf("%w: %s version exited %d: %s", engine.ErrNotReady, i.bin, code, firstLine(out))
	}
	return nil
}

// NewFileList creates an empty in-memory collection.
func (i *Instance) NewFileList() engine.FileList {
	return &engine.MemFileList{}
}

// ConvertFileList exports the collection's primary file to format.
func (i *Instance) ConvertFileList(ctx context.Context, list engine.FileList, format string) (*engine.Result, error) {
	ml, ok := list.(*engine.MemFileList)
	if !ok {
		return nil, engine.ErrForeignFileList
	}
	if ml.Len() == 0 {
		return nil, ErrEmptyFileList
	}

	work, err := os.MkdirTemp("", "assimp-*")
	if err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(work)

	inDir := filepath.Join(work, "in")
	outDir := filepath.Join(work, "out")
	for _, d := range []string{inDir, outDir} {
		if err := os.MkdirAll(d, dirPermissions); err != nil {
			return nil, fmt.Errorf("creating work dir: %w", err)
		}
	}

	paths := make([]string, ml.Len())
	for idx, f := range ml.Files {
		paths[idx] = f.Path
	}
	names := stagingNames(paths)
	for idx, f := range ml.Files {
		// #nosec G306 -- scratch copy of caller data inside a private temp dir
		if err := os.WriteFile(filepath.Join(inDir, names[idx]), f.Content, 0o600); err != nil {
			return nil, fmt.Errorf("staging %s: %w", names[idx], err)
		}
	}

	base := strings.TrimSuffix(names[0], filepath.Ext(names[0]))
	if base == "" {
		base = "output"
	}
	primaryOut := base + "." + ExtensionFor(format)
	args := []string{"export", filepath.Join(inDir, names[0]), filepath.Join(outDir, primaryOut), "-f" + format}

	code, out, err := i.runner.Run(ctx, i.bin, args, inDir)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return &engine.Result{ErrorCode: code, Message: firstLine(out)}, nil
	}

	files, err := collect(outDir, primaryOut)
	if err != nil {
		return nil, err
	}
	return &engine.Result{Success: true, Files: files}, nil
}

// collect reads every regular file in dir, primary first then lexical.
func collect(dir, primary string) ([]engine.OutputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading output dir: %w", err)
	}
	var files []engine.OutputFile
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name())) // #nosec G304 -- inside private temp dir
		if err != nil {
			return nil, fmt.Errorf("reading output %s: %w", e.Name(), err)
		}
		f := engine.OutputFile{Path: e.Name(), Content: data}
		if e.Name() == primary {
			files = append([]engine.OutputFile{f}, files...)
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// safeName keeps the base name of p when it is a usable file name.
func safeName(p string, idx int) string {
	name := filepath.Base(strings.ReplaceAll(p, "\\", "/"))
	if locator.ValidateAssetName(name) != nil || strings.HasPrefix(name, "-") {
		name = fmt.Sprintf("file%d", idx)
		if ext := strings.Trim(filepath.Ext(p), "."); ext != "" {
			name += "." + ext
		}
	}
	return name
}

// stagingNames returns one distinct safe name per path. The primary file
// keeps its name; a later file whose name is taken, compared without case
// for case-insensitive file systems, gets its index appended to the stem.
func stagingNames(paths []string) []string {
	names := make([]string, len(paths))
	taken := make(map[string]bool, len(paths))
	for idx, p := range paths {
		name := safeName(p, idx)
		for taken[strings.ToLower(name)] {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), idx, ext)
		}
		taken[strings.ToLower(name)] = true
		names[idx] = name
	}
	return names
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// extensions maps assimp export format ids to the extension they write.
var extensions = map[string]string{
	"glb2":     "glb",
	"glb":      "glb",
	"gltf2":    "gltf",
	"gltf":     "gltf",
	"obj":      "obj",
	"objnomtl": "obj",
	"stl":      "stl",
	"stlb":     "stl",
	"ply":      "ply",
	"plyb":     "ply",
	"fbx":      "fbx",
	"fbxa":     "fbx",
	"collada":  "dae",
	"3mf":      "3mf",
	"usdz":     "usdz",
	"x":        "x",
	"x3d":      "x3d",
	"3ds":      "3ds",
	"assbin":   "assbin",
	"assxml":   "assxml",
}

// ExtensionFor returns the file extension assimp writes for a format id.
// Unknown ids are used as their own extension.
func ExtensionFor(format string) string {
	if ext, ok := extensions[strings.ToLower(format)]; ok {
		return ext
	}
	return strings.ToLower(format)
}

// Compile-time interface checks.
var (
	_ engine.Injector = (*Backend)(nil)
	_ engine.Instance = (*Instance)(nil)
)
