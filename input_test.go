package assimp

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/alnah/go-assimp/internal/locator"
)

func TestNormalize_Variants(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	local := filepath.Join(dir, "chair.fbx")
	if err := os.WriteFile(local, []byte("fbx"), 0o600); err != nil {
		t.Fatal(err)
	}
	mapFS := fstest.MapFS{"models/lamp.ply": {Data: []byte("ply")}}

	tests := []struct {
		name      string
		src       func(t *testing.T) InputSource
		wantNames []string
		wantData  []string
	}{
		{
			name:      "http url",
			src:       func(*testing.T) InputSource { return URL(srv.URL + "/assets/cube.obj?v=2") },
			wantNames: []string{"cube.obj"},
			wantData:  []string{"remote:/assets/cube.obj"},
		},
		{
			name:      "url without path segment",
			src:       func(*testing.T) InputSource { return URL(srv.URL + "/") },
			wantNames: []string{"input.bin"},
			wantData:  []string{"remote:/"},
		},
		{
			name:      "local path",
			src:       func(*testing.T) InputSource { return URL(local) },
			wantNames: []string{"chair.fbx"},
			wantData:  []string{"fbx"},
		},
		{
			name:      "file url",
			src:       func(*testing.T) InputSource { return URL("file://" + filepath.ToSlash(local)) },
			wantNames: []string{"chair.fbx"},
			wantData:  []string{"fbx"},
		},
		{
			name: "os file",
			src: func(t *testing.T) InputSource {
				f, err := os.Open(local)
				if err != nil {
					t.Fatal(err)
				}
				t.Cleanup(func() { _ = f.Close() })
				return File{Handle: f}
			},
			wantNames: []string{"chair.fbx"},
			wantData:  []string{"fbx"},
		},
		{
			name: "fs file",
			src: func(t *testing.T) InputSource {
				f, err := mapFS.Open("models/lamp.ply")
				if err != nil {
					t.Fatal(err)
				}
				return File{Handle: f}
			},
			wantNames: []string{"lamp.ply"},
			wantData:  []string{"ply"},
		},
		{
			name:      "blob",
			src:       func(*testing.T) InputSource { return Blob{Reader: strings.NewReader("blob")} },
			wantNames: []string{"input.bin"},
			wantData:  []string{"blob"},
		},
		{
			name:      "bytes",
			src:       func(*testing.T) InputSource { return Bytes("raw") },
			wantNames: []string{"input.bin"},
			wantData:  []string{"raw"},
		},
		{
			name:      "named buffer",
			src:       func(*testing.T) InputSource { return NamedBuffer{Name: "tree.stl", Data: []byte("stl")} },
			wantNames: []string{"tree.stl"},
			wantData:  []string{"stl"},
		},
		{
			name:      "named buffer without name",
			src:       func(*testing.T) InputSource { return NamedBuffer{Data: []byte("x")} },
			wantNames: []string{"input.bin"},
			wantData:  []string{"x"},
		},
		{
			name: "file set keeps order",
			src: func(*testing.T) InputSource {
				return FileSet{Files: []NamedBuffer{
					{Name: "scene.gltf", Data: []byte("{}")},
					{Name: "scene.bin", Data: []byte("bin")},
					{Name: "albedo.png", Data: []byte("png")},
				}}
			},
			wantNames: []string{"scene.gltf", "scene.bin", "albedo.png"},
			wantData:  []string{"{}", "bin", "png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(context.Background(), tt.src(t))
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if len(got) != len(tt.wantNames) {
				t.Fatalf("Normalize() returned %d buffers, want %d", len(got), len(tt.wantNames))
			}
			for i, b := range got {
				if b.Name == "" {
					t.Errorf("buffer %d has empty name", i)
				}
				if b.Name != tt.wantNames[i] {
					t.Errorf("buffer %d name = %q, want %q", i, b.Name, tt.wantNames[i])
				}
				if string(b.Data) != tt.wantData[i] {
					t.Errorf("buffer %d data = %q, want %q", i, b.Data, tt.wantData[i])
				}
			}
		})
	}
}

func TestNormalize_FailsClosed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	tests := []struct {
		name string
		src  InputSource
	}{
		{name: "nil", src: nil},
		{name: "foreign variant", src: foreignSource{}},
		{name: "empty url", src: URL("")},
		{name: "http 404", src: URL(srv.URL + "/missing.obj")},
		{name: "missing local file", src: URL(filepath.Join(t.TempDir(), "nope.obj"))},
		{name: "file without handle", src: File{}},
		{name: "blob without reader", src: Blob{}},
		{name: "failing reader", src: Blob{Reader: errReader{}}},
		{name: "empty file set", src: FileSet{}},
		{name: "directory handle", src: dirFile(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Normalize(context.Background(), tt.src)
			assertCode(t, err, CodeUnsupportedInput)
		})
	}
}

// The server must outlive the parallel subtests, so it is closed in
// t.Cleanup; a closed server would turn every request into a dial error.
func TestNormalize_RemoteLocator(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.obj" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("v 0 0 0"))
	}))
	t.Cleanup(srv.Close)

	t.Run("fetched", func(t *testing.T) {
		t.Parallel()

		got, err := Normalize(context.Background(), URL(srv.URL+"/models/cube.obj?v=2"))
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "cube.obj" || string(got[0].Data) != "v 0 0 0" {
			t.Errorf("Normalize() = %v, want cube.obj with server body", got)
		}
	})

	t.Run("http status is not found", func(t *testing.T) {
		t.Parallel()

		_, err := Normalize(context.Background(), URL(srv.URL+"/missing.obj"))
		assertCode(t, err, CodeUnsupportedInput)
		if !errors.Is(err, locator.ErrNotFound) {
			t.Errorf("error = %v, want the HTTP status reported as not found", err)
		}
	})

	t.Cleanup(func() {
		if n := hits.Load(); n != 2 {
			t.Errorf("server saw %d requests, want 2", n)
		}
	})
}

func TestNormalize_DoesNotAliasCallerMemory(t *testing.T) {
	t.Parallel()

	data := []byte("original")
	named := NamedBuffer{Name: "a.obj", Data: data}
	set := FileSet{Files: []NamedBuffer{{Name: "b.obj", Data: data}}}

	for _, src := range []InputSource{Bytes(data), named, set} {
		got, err := Normalize(context.Background(), src)
		if err != nil {
			t.Fatal(err)
		}
		got[0].Data[0] = 'X'
		if !bytes.Equal(data, []byte("original")) {
			t.Fatalf("%T: normalized buffer aliases caller data", src)
		}
	}
}

func TestSourceOf(t *testing.T) {
	t.Parallel()

	f, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{name: "string", in: "https://x/y.obj", want: "assimp.URL"},
		{name: "bytes", in: []byte("x"), want: "assimp.Bytes"},
		{name: "named buffers", in: []NamedBuffer{{Name: "a"}}, want: "assimp.FileSet"},
		{name: "named buffer", in: NamedBuffer{Name: "a"}, want: "assimp.NamedBuffer"},
		{name: "variant", in: Blob{}, want: "assimp.Blob"},
		{name: "os file", in: f, want: "assimp.File"},
		{name: "reader", in: strings.NewReader("x"), want: "assimp.Blob"},
		{name: "number", in: 42, wantErr: true},
		{name: "nil", in: nil, wantErr: true},
		{name: "map", in: map[string]any{"name": "a", "data": []byte("x")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := SourceOf(tt.in)
			if tt.wantErr {
				assertCode(t, err, CodeUnsupportedInput)
				return
			}
			if err != nil {
				t.Fatalf("SourceOf() error = %v", err)
			}
			if typ := typeName(got); typ != tt.want {
				t.Errorf("SourceOf(%T) = %s, want %s", tt.in, typ, tt.want)
			}
		})
	}
}

func TestNamedBuffer_String(t *testing.T) {
	t.Parallel()

	b := NamedBuffer{Name: "cube.obj", Data: make([]byte, 12)}
	if got := b.String(); got != "cube.obj (12 bytes)" {
		t.Errorf("String() = %q", got)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("device gone")
}

func dirFile(t *testing.T) File {
	t.Helper()
	f, err := os.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return File{Handle: f}
}

func typeName(v any) string {
	switch v.(type) {
	case URL:
		return "assimp.URL"
	case File:
		return "assimp.File"
	case Blob:
		return "assimp.Blob"
	case Bytes:
		return "assimp.Bytes"
	case NamedBuffer:
		return "assimp.NamedBuffer"
	case FileSet:
		return "assimp.FileSet"
	default:
		return "unknown"
	}
}
