// Package pipeline orchestrates one batch of video links under a subject.
//
// For each link, in input order, the pipeline expands playlists, consults the
// URL ledger, waits a jittered delay, drives the fetch executor into a
// staging file, hashes it, moves it to its final name, and claims the hash in
// the content ledger. A winning claim keeps the file and marks the URL; a
// losing claim deletes the new copy and still marks the URL so it is never
// fetched again. An existing file is never overwritten or deleted by a later
// download. Items are processed strictly
// one at a time, and a failure or panic inside one item never aborts the rest
// of the batch. Only an unusable download directory or cancellation surfaces
// as an error.
package pipeline
