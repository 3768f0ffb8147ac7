package locator

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// DefaultAssetDir is the conventional directory holding engine assets.
const DefaultAssetDir = "wasm"

// Bases are the roots candidates are derived from.
type Bases struct {
	Dev       bool   // include DevOrigin candidates
	DevOrigin string // development server origin, e.g. http://localhost:5173
	DistBase  string // packaged distribution root
	ModuleDir string // directory of the running module or executable
	SiteRoot  string // site-root fallback, "" means the working directory
}

// Locator produces and tries candidate locations for named assets.
type Locator struct {
	bases    Bases
	assetDir string
	fetcher  *Fetcher
}

// New creates a Locator. An empty assetDir uses DefaultAssetDir and a nil
// fetcher uses NewFetcher(nil).
func New(bases Bases, assetDir string, fetcher *Fetcher) *Locator {
	if assetDir == "" {
		assetDir = DefaultAssetDir
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil)
	}
	return &Locator{bases: bases, assetDir: assetDir, fetcher: fetcher}
}

// Fetcher returns the fetcher used for retrievals.
func (l *Locator) Fetcher() *Fetcher {
	return l.fetcher
}

// ValidateAssetName checks that name is a single path element.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// Candidates returns the ordered candidate locations for name.
func (l *Locator) Candidates(name string) ([]string, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}

	var bases []string
	if l.bases.Dev && l.bases.DevOrigin != "" {
		bases = append(bases, l.bases.DevOrigin)
	}
	bases = append(bases, l.bases.DistBase, l.bases.ModuleDir)
	siteRoot := l.bases.SiteRoot
	if siteRoot == "" {
		siteRoot = "."
	}
	bases = append(bases, siteRoot)

	seen := make(map[string]bool, len(bases))
	out := make([]string, 0, len(bases))
	for _, base := range bases {
		if base == "" {
			continue
		}
		loc := join(base, l.assetDir, name)
		if seen[loc] {
			continue
		}
		seen[loc] = true
		out = append(out, loc)
	}
	return out, nil
}

// Resolve returns the most specific candidate for name, or name itself
// when it is not a valid asset name. Engines use it as their asset
// resolution callback.
func (l *Locator) Resolve(name string) string {
	urls, err := l.Candidates(name)
	if err != nil || len(urls) == 0 {
		return name
	}
	return urls[0]
}

// TryEach runs attempt for each location in order and returns the first
// location that succeeded. When every attempt fails, the last error is
// returned. A cancelled context stops the loop.
func TryEach(ctx context.Context, locations []string, attempt func(ctx context.Context, loc string) error) (string, error) {
	if len(locations) == 0 {
		return "", ErrNoCandidates
	}

	var lastErr error
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := attempt(ctx, loc)
		if err == nil {
			return loc, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all %d candidates failed, last: %w", len(locations), lastErr)
}

// FetchFirstAvailable returns the content of the first location that can be
// fetched along with that location. Absence is not an error: ok is false
// when no location succeeded.
func (l *Locator) FetchFirstAvailable(ctx context.Context, locations []string) (data []byte, from string, ok bool) {
	from, err := TryEach(ctx, locations, func(ctx context.Context, loc string) error {
		b, err := l.fetcher.Fetch(ctx, loc)
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, "", false
	}
	return data, from, true
}

// InjectFirst calls inject for each location until one succeeds. It only
// fails after the list is exhausted, returning the last observed error.
func (l *Locator) InjectFirst(ctx context.Context, locations []string, inject func(ctx context.Context, loc string) error) (string, error) {
	return TryEach(ctx, locations, inject)
}

// join appends dir and name to base, as a URL path for URL bases and as a
// filesystem path otherwise.
func join(base, dir, name string) string {
	if IsURL(base) || strings.HasPrefix(base, "file://") {
		u, err := url.Parse(base)
		if err == nil {
			u.Path = path.Join("/", u.Path, dir, name)
			return u.String()
		}
	}
	if base == "." {
		return "./" + path.Join(dir, name)
	}
	return filepath.Join(base, dir, name)
}

// IsURL reports whether loc is an http or https URL.
func IsURL(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

// LastSegment returns the final non-empty path segment of a URL or path,
// or "" when there is none.
func LastSegment(loc string) string {
	p := loc
	if u, err := url.Parse(loc); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		p = u.Path
	}
	p = strings.ReplaceAll(p, "\\", "/")
	segs := strings.Split(p, "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] != "" {
			return segs[i]
		}
	}
	return ""
}
