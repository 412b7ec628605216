// Package whisperx wraps the WhisperX command line (run through uvx) and the
// ffmpeg audio extraction it needs.
//
// Audio is extracted as mono 16kHz WAV, WhisperX writes a JSON result next to
// it, and the segments are joined into plain text. Tests swap the process
// runner with WithCommandRunner.
package whisperx
