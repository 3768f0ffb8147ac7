package assimp

import (
	"path"
	"slices"
	"strings"
)

// ExportFormat identifies a supported output format.
type ExportFormat string

// Supported export formats.
const (
	FormatGLB ExportFormat = "glb"
	FormatOBJ ExportFormat = "obj"
	FormatSTL ExportFormat = "stl"
	FormatPLY ExportFormat = "ply"
	FormatFBX ExportFormat = "fbx"
	FormatUSD ExportFormat = "usd"
)

// IntermediateToken is the engine token of the canonical intermediate format.
const IntermediateToken = "glb2"

// intermediateName is the file name given to the canonical buffer.
const intermediateName = "input.glb"

// FormatSpec is how the engine spells a format and the extension it writes.
type FormatSpec struct {
	Token     string
	Extension string
}

// formats must list every ExportFormat; format_test.go checks it against Formats.
var formats = map[ExportFormat]FormatSpec{
	FormatGLB: {Token: "glb2", Extension: "glb"},
	FormatOBJ: {Token: "obj", Extension: "obj"},
	FormatSTL: {Token: "stl", Extension: "stl"},
	FormatPLY: {Token: "ply", Extension: "ply"},
	FormatFBX: {Token: "fbx", Extension: "fbx"},
	FormatUSD: {Token: "usdz", Extension: "usdz"},
}

// Formats returns all export formats in declaration order.
func Formats() []ExportFormat {
	return []ExportFormat{FormatGLB, FormatOBJ, FormatSTL, FormatPLY, FormatFBX, FormatUSD}
}

// MapFormat returns the engine token and output extension for target.
// Unknown formats fail with CodeUnsupportedFormat; there is no default.
func MapFormat(target ExportFormat) (FormatSpec, error) {
	spec, ok := formats[target]
	if !ok {
		return FormatSpec{}, newError(CodeUnsupportedFormat, nil, "%q", string(target))
	}
	return spec, nil
}

// ParseFormat converts a user-supplied name (case-insensitive, optional
// leading dot) to an ExportFormat.
func ParseFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if _, ok := formats[f]; !ok {
		return "", newError(CodeUnsupportedFormat, nil, "%q", s)
	}
	return f, nil
}

// inputFormats are the extensions the importer is known to read.
// Split glTF (.gltf with external .bin) is only read when all parts are supplied.
var inputFormats = []string{"glb", "obj", "stl", "ply", "fbx", "3mf", "vox", "gltf", "usd", "usda", "usdc", "usdz"}

// InputFormats returns the importer's known input extensions, without dots.
func InputFormats() []string {
	return slices.Clone(inputFormats)
}

// IsSupportedInput reports whether name has a known input extension.
func IsSupportedInput(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	return ext != "" && slices.Contains(inputFormats, ext)
}
