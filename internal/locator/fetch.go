package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/alnah/go-assimp/internal/httputil"
)

// MaxFetchSize caps a single retrieval (512 MiB).
var MaxFetchSize int64 = 512 << 20

// Fetcher retrieves bytes from http(s) URLs, file:// URLs and local paths.
type Fetcher struct {
	client httputil.Doer
}

// NewFetcher creates a Fetcher. A nil client uses http.DefaultClient.
func NewFetcher(client httputil.Doer) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// Fetch reads the whole content at loc. A non-success HTTP status or a
// missing file is reported as ErrNotFound.
func (f *Fetcher) Fetch(ctx context.Context, loc string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case IsURL(loc):
		return f.fetchHTTP(ctx, loc)
	case strings.HasPrefix(loc, "file://"):
		u, err := url.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, loc, err)
		}
		return readFile(u.Path)
	default:
		return readFile(loc)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, loc string) ([]byte, error) {
	resp, err := httputil.Get(ctx, f.client, loc)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", loc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrNotFound, loc, resp.StatusCode)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", loc, err)
	}
	return data, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path) // #nosec G304 -- candidate locations are built by the locator or supplied by the caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return readLimited(file)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFetchSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxFetchSize {
		return nil, fmt.Errorf("content exceeds %d bytes", MaxFetchSize)
	}
	return data, nil
}
