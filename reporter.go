package assimp

import "fmt"

// Pipeline stage names used in log output.
const (
	stageNormalize = "normalize"
	stageFormat    = "format"
	stageImporter  = "load importer"
	stageImport    = "import"
	stageExporter  = "load exporter"
	stageExport    = "export"
)

// reporter turns stage failures into exactly one *Error each and logs it.
type reporter struct {
	logger Logger
}

// fail classifies cause for stage. An *Error raised further down keeps its
// own code; anything else gets code.
func (r reporter) fail(stage string, code Code, cause error, format string, args ...any) *Error {
	e := classify(code, cause, format, args...)
	r.logger.Warn("conversion failed", "code", e.Code, "stage", stage, "cause", e.Err)
	return e
}

func classify(code Code, cause error, format string, args ...any) *Error {
	if e, ok := cause.(*Error); ok {
		return e
	}
	return newError(code, cause, format, args...)
}

// recovered converts a recovered panic value into an error.
func recovered(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("engine panic: %w", err)
	}
	return fmt.Errorf("engine panic: %v", v)
}
