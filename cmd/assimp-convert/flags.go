package main

import (
	"time"

	flag "github.com/spf13/pflag"
)

// engineFlags selects and locates engines; shared by convert and doctor.
type engineFlags struct {
	backend   string
	assetBase string
	devOrigin string
	assetDir  string
	cacheDir  string
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	engine    engineFlags
	format    string
	output    string
	name      string
	workers   int
	timeout   time.Duration
	recursive bool
}

func addEngineFlags(fs *flag.FlagSet, f *engineFlags) {
	fs.StringVar(&f.backend, "backend", "", "engine backend: process or browser (default process)")
	fs.StringVar(&f.assetBase, "asset-base", "", "directory or URL of the packaged engine assets")
	fs.StringVar(&f.devOrigin, "dev-origin", "", "development server origin tried first, e.g. http://localhost:5173")
	fs.StringVar(&f.assetDir, "asset-dir", "", `asset directory under each base (default "wasm")`)
	fs.StringVar(&f.cacheDir, "cache-dir", "", "where downloaded engines are cached")
}

func addConvertFlags(fs *flag.FlagSet, f *convertFlags) {
	fs.StringVarP(&f.format, "format", "f", "", "export format: glb, obj, stl, ply, fbx, usd (default glb)")
	fs.StringVarP(&f.output, "output", "o", "", "output directory (default: beside each input)")
	fs.StringVar(&f.name, "name", "", "output base name, single input only")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel conversions (0 = auto)")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-conversion timeout, e.g. 2m (0 = none)")
	fs.BoolVarP(&f.recursive, "recursive", "r", false, "descend into subdirectories")
	addEngineFlags(fs, &f.engine)
}
