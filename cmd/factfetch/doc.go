// Package main hosts the factfetch CLI entrypoint and command graph.
//
// The Cobra-based command tree covers a single poll cycle (run), the
// long-running watcher (watch), ad-hoc downloads, link extraction, manual
// transcription, ledger inspection, configuration scaffolding and a doctor
// command for dependency checks. Wiring of the pipeline collaborators lives
// in app.go so each subcommand only deals with input and output.
package main
