// Package preflight provides readiness checks for the external binaries and
// filesystem paths factfetch depends on.
//
// The run and watch commands refuse to start when a required check fails;
// the doctor command prints every result. Transcription binaries are only
// required when transcription is enabled.
package preflight
