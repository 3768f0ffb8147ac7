package locator

import "errors"

// Sentinel errors for locator operations.
var (
	// ErrInvalidAssetName indicates an asset name that could escape its directory.
	ErrInvalidAssetName = errors.New("invalid asset name")

	// ErrNotFound indicates a location did not yield the asset.
	ErrNotFound = errors.New("asset not found")

	// ErrNoCandidates indicates an empty candidate list.
	ErrNoCandidates = errors.New("no candidate locations")
)
