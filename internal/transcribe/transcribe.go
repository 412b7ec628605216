package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/abadojack/whatlanggo"

	"factfetch/internal/fileutil"
	"factfetch/internal/logging"
	"factfetch/internal/services"
	"factfetch/internal/services/whisperx"
)

// Suffix is appended to the video base name to form the transcript path.
const Suffix = ".txt"

// Engine turns a video into text.
type Engine interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	Transcribe(ctx context.Context, source, outputDir string) (whisperx.Transcript, error)
}

// Result describes what happened to one video.
type Result struct {
	Video      string
	Transcript string
	Language   string
	Skipped    bool
	Err        error
}

// Transcriber runs the engine over lists of videos.
type Transcriber struct {
	engine Engine
	logger *slog.Logger
}

// New constructs a Transcriber.
func New(engine Engine, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		engine: engine,
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
}

// TranscriptPath returns the transcript location for video.
func TranscriptPath(video string) string {
	return strings.TrimSuffix(video, filepath.Ext(video)) + Suffix
}

// Videos transcribes each video in order.
func (t *Transcriber) Videos(ctx context.Context, videos []string) []Result {
	logger := logging.WithContext(ctx, t.logger)
	if len(videos) == 0 {
		logger.Info("no videos to transcribe")
		return nil
	}
	results := make([]Result, 0, len(videos))
	for _, video := range videos {
		if ctx.Err() != nil {
			results = append(results, Result{Video: video, Transcript: TranscriptPath(video), Err: ctx.Err()})
			continue
		}
		results = append(results, t.Video(ctx, video))
	}
	return results
}

// Video transcribes a single file. Errors are reported in the result and
// logged.
func (t *Transcriber) Video(ctx context.Context, video string) (result Result) {
	logger := logging.WithContext(ctx, t.logger).With(logging.String("video", filepath.Base(video)))
	result = Result{Video: video, Transcript: TranscriptPath(video)}

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("transcribe panic: %v", r)
		}
		if result.Err != nil {
			logging.ErrorWithContext(logger, "transcription failed", "transcription_failed",
				logging.Error(result.Err),
				logging.String("error_kind", services.Kind(result.Err)),
				logging.String(logging.FieldErrorHint, "check ffmpeg and uvx availability"),
				logging.String(logging.FieldImpact, "video kept without transcript"),
			)
		}
	}()

	if fileutil.IsRegularFile(result.Transcript) {
		logger.Info("transcript exists, skipping", logging.String("transcript", result.Transcript))
		result.Skipped = true
		return result
	}
	if !fileutil.IsRegularFile(video) {
		result.Err = services.Wrap(services.ErrValidation, "transcribe", "open video", video, os.ErrNotExist)
		return result
	}

	workDir, err := os.MkdirTemp("", "factfetch-transcribe-*")
	if err != nil {
		result.Err = fmt.Errorf("create work dir: %w", err)
		return result
	}
	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	logger.Info("transcribing")
	base := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	audio := filepath.Join(workDir, base+".wav")
	if err := t.engine.ExtractAudio(ctx, video, audio); err != nil {
		result.Err = err
		return result
	}
	transcript, err := t.engine.Transcribe(ctx, audio, workDir)
	if err != nil {
		result.Err = err
		return result
	}

	if err := writeAtomic(result.Transcript, transcript.Text); err != nil {
		result.Err = err
		return result
	}
	result.Language = detectLanguage(transcript.Text, transcript.Language)
	logger.Info("transcript saved",
		logging.String("transcript", result.Transcript),
		logging.String("language", result.Language),
		logging.Int("chars", len(transcript.Text)),
	)
	return result
}

func detectLanguage(text, reported string) string {
	if strings.TrimSpace(text) != "" {
		info := whatlanggo.Detect(text)
		if info.IsReliable() {
			return info.Lang.Iso6391()
		}
	}
	return reported
}

func writeAtomic(path, text string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".transcript-*")
	if err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(strings.TrimSpace(text) + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
