// Package process isolates engine subprocesses in their own process group
// and kills the whole group when a conversion is cancelled.
package process
