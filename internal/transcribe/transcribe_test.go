package transcribe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"factfetch/internal/logging"
	"factfetch/internal/services/whisperx"
	"factfetch/internal/testsupport"
	"factfetch/internal/transcribe"
)

const englishText = "The mayor said yesterday that the new bridge would open next spring, " +
	"although several engineers have warned that the budget is far too small " +
	"and that the schedule does not leave enough time for safety inspections."

type fakeEngine struct {
	text      string
	language  string
	failOn    string
	panicOn   string
	extracted []string
}

func (f *fakeEngine) ExtractAudio(_ context.Context, source, dest string) error {
	f.extracted = append(f.extracted, source)
	if f.panicOn != "" && strings.HasSuffix(source, f.panicOn) {
		panic("engine exploded")
	}
	return os.WriteFile(dest, []byte("wav"), 0o644)
}

func (f *fakeEngine) Transcribe(_ context.Context, source, _ string) (whisperx.Transcript, error) {
	if f.failOn != "" && strings.Contains(source, f.failOn) {
		return whisperx.Transcript{}, errors.New("whisperx failed")
	}
	return whisperx.Transcript{Text: f.text, Language: f.language}, nil
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, 4096, 0x47)
	return path
}

func TestTranscriptPath(t *testing.T) {
	if got := transcribe.TranscriptPath("/v/Clip_ab12cd34.mp4"); got != "/v/Clip_ab12cd34.txt" {
		t.Fatalf("TranscriptPath = %q", got)
	}
}

func TestVideoWritesTranscriptAndDetectsLanguage(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "clip.mp4")
	engine := &fakeEngine{text: englishText, language: "fr"}
	tr := transcribe.New(engine, logging.NewNop())

	result := tr.Video(context.Background(), video)
	if result.Err != nil {
		t.Fatalf("Video: %v", result.Err)
	}
	if result.Skipped {
		t.Fatal("did not expect skip")
	}
	data, err := os.ReadFile(filepath.Join(dir, "clip.txt"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if strings.TrimSpace(string(data)) != englishText {
		t.Fatalf("transcript = %q", data)
	}
	if result.Language != "en" {
		t.Fatalf("Language = %q, want en", result.Language)
	}
}

func TestVideoFallsBackToReportedLanguage(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "quiet.mp4")
	tr := transcribe.New(&fakeEngine{text: "", language: "de"}, logging.NewNop())

	result := tr.Video(context.Background(), video)
	if result.Err != nil {
		t.Fatalf("Video: %v", result.Err)
	}
	if result.Language != "de" {
		t.Fatalf("Language = %q, want de", result.Language)
	}
}

func TestVideoSkipsExistingTranscript(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "done.mp4")
	if err := os.WriteFile(filepath.Join(dir, "done.txt"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	engine := &fakeEngine{text: "new"}
	result := transcribe.New(engine, logging.NewNop()).Video(context.Background(), video)
	if !result.Skipped || result.Err != nil {
		t.Fatalf("expected skip, got %+v", result)
	}
	if len(engine.extracted) != 0 {
		t.Fatal("engine should not run for existing transcript")
	}
	data, _ := os.ReadFile(filepath.Join(dir, "done.txt"))
	if string(data) != "old" {
		t.Fatalf("existing transcript overwritten: %q", data)
	}
}

func TestVideosIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	videos := []string{
		writeVideo(t, dir, "a.mp4"),
		writeVideo(t, dir, "broken.mp4"),
		writeVideo(t, dir, "boom.mp4"),
		filepath.Join(dir, "missing.mp4"),
		writeVideo(t, dir, "c.mp4"),
	}
	engine := &fakeEngine{text: englishText, failOn: "broken", panicOn: "boom.mp4"}
	results := transcribe.New(engine, logging.NewNop()).Videos(context.Background(), videos)
	if len(results) != len(videos) {
		t.Fatalf("expected %d results, got %d", len(videos), len(results))
	}
	for i, wantErr := range []bool{false, true, true, true, false} {
		if (results[i].Err != nil) != wantErr {
			t.Fatalf("result %d (%s): err=%v, wantErr=%v", i, results[i].Video, results[i].Err, wantErr)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "c.txt")); err != nil {
		t.Fatalf("expected transcript after failures: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("failed video should not get a transcript, stat err=%v", err)
	}
}

func TestVideosStopsOnCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := &fakeEngine{text: "x"}
	results := transcribe.New(engine, logging.NewNop()).Videos(ctx, []string{writeVideo(t, dir, "a.mp4")})
	if len(results) != 1 || !errors.Is(results[0].Err, context.Canceled) {
		t.Fatalf("unexpected results %+v", results)
	}
	if len(engine.extracted) != 0 {
		t.Fatal("engine should not run after cancellation")
	}
}

func TestVideosEmpty(t *testing.T) {
	if got := transcribe.New(&fakeEngine{}, nil).Videos(context.Background(), nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
