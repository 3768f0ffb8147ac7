// Package assimp converts 3-D models between formats using an externally
// loaded assimp engine.
//
// # Quick Start
//
// Create a converter, convert a model, and close when done:
//
//	conv, err := assimp.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	data, err := conv.Convert(ctx, assimp.URL("models/cube.obj"), assimp.FormatGLB, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("cube.glb", data, 0644)
//
// Every error returned by the package is an *Error carrying a stable Code.
// Use errors.Is against the sentinels (ErrImportFailed, ...) or CodeOf.
// TryConvert returns the failure inside a ConversionResult instead.
//
// # Conversion Pipeline
//
// Each conversion runs these stages in order:
//
//  1. Input normalization into named buffers (URL, File, Blob, Bytes,
//     NamedBuffer, FileSet); buffer 0 is the primary input
//  2. Export format check (UnsupportedFormat before any engine is touched)
//  3. Import of all buffers to the canonical glTF binary ("glb2")
//  4. Export of the canonical buffer ("input.glb") to the target token
//  5. Selection of the output file whose extension matches the target,
//     falling back to the first output file
//
// # Engines
//
// Two engine roles exist, importer and exporter. An EngineLoader loads each
// lazily and shares it: concurrent callers wait on one load, a failed load
// stays failed until Reset (Converter.Destroy), and Close releases
// everything. CreateEngine loads both roles up front.
//
// Built-in backends:
//
//	BackendProcess  the assimp command-line tool (default)
//	BackendBrowser  assimpjs WebAssembly inside headless Chrome (go-rod)
//
// Custom engines plug in through WithEngineSource and an Injector, which
// registers a Factory once its bootstrap code is available.
//
// # Asset Locations
//
// Engine assets are looked up under a directory (default "wasm") of each
// base in AssetBases, in this order:
//
//	DevOrigin   development server, only when Dev is set
//	DistBase    packaged distribution
//	ModuleDir   directory of the running executable
//	SiteRoot    working directory fallback
//
// The first candidate that loads wins; if all fail, the last error is
// reported as EngineLoadFailed.
//
// # Browser Requirements
//
// BackendBrowser requires Chrome/Chromium. The go-rod library downloads a
// managed Chromium on first run when none is found.
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package assimp
