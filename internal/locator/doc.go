// Package locator finds engine assets among an ordered list of candidate
// locations and retrieves the first one that works.
//
// # Candidate Order
//
// For an asset name and asset directory "wasm", candidates are produced in
// decreasing specificity:
//
//	{DevOrigin}/wasm/{name}    same-origin development server (Dev only)
//	{DistBase}/wasm/{name}     packaged distribution
//	{ModuleDir}/wasm/{name}    relative to the running module
//	{SiteRoot}/wasm/{name}     site-root fallback ("./wasm/{name}" when unset)
//
// Bases may be http(s) URLs, file:// URLs or directories. Empty bases are
// skipped and duplicates removed, so the order is stable for a given Bases.
//
// # Fallback
//
// TryEach is the single fallback loop: it runs an attempt per candidate in
// order, returns the first success, and otherwise the last failure.
// FetchFirstAvailable and InjectFirst are both built on it.
package locator
