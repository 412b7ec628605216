// Package transcribe writes plain-text transcripts next to saved videos.
//
// Each video gets a sibling "<base>.txt". Videos that already have one are
// skipped, and a failure on one file never stops the rest of the list. The
// transcript language is detected from the text and falls back to what the
// speech model reported.
package transcribe
