// Package playlist turns one playlist URL into a bounded, ordered list of
// member video URLs.
package playlist

import (
	"context"
	"log/slog"
	"strings"

	"factfetch/internal/logging"
	"factfetch/internal/metrics"
)

// DefaultMaxVideos bounds expansion when no cap is configured.
const DefaultMaxVideos = 20

// Lister prints up to limit member URLs without fetching media.
type Lister interface {
	ListPlaylist(ctx context.Context, url string, limit int) ([]string, error)
}

// Expander implements expand(playlist_url) -> urls.
type Expander struct {
	lister    Lister
	maxVideos int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New builds an Expander. A maxVideos <= 0 selects DefaultMaxVideos.
func New(lister Lister, maxVideos int, logger *slog.Logger, m *metrics.Metrics) *Expander {
	if maxVideos <= 0 {
		maxVideos = DefaultMaxVideos
	}
	return &Expander{
		lister:    lister,
		maxVideos: maxVideos,
		logger:    logging.NewComponentLogger(logger, "playlist"),
		metrics:   m,
	}
}

// MaxVideos returns the configured bound.
func (e *Expander) MaxVideos() int {
	return e.maxVideos
}

// Expand lists playlist members in order. Failures are logged and yield nil.
func (e *Expander) Expand(ctx context.Context, playlistURL string) []string {
	logger := logging.WithContext(ctx, e.logger).With(logging.URL(playlistURL))

	members, err := e.lister.ListPlaylist(ctx, playlistURL, e.maxVideos)
	if err != nil {
		e.metrics.PlaylistExpanded(false)
		logging.WarnWithContext(logger, "playlist expansion failed", "playlist_expand_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the playlist is public and the url is complete"),
			logging.String(logging.FieldImpact, "playlist contributes no items to this batch"),
		)
		return nil
	}

	out := make([]string, 0, min(len(members), e.maxVideos))
	for _, member := range members {
		member = strings.TrimSpace(member)
		if member == "" {
			continue
		}
		out = append(out, member)
		if len(out) == e.maxVideos {
			break
		}
	}
	e.metrics.PlaylistExpanded(true)
	logger.Info("playlist expanded",
		logging.Int("members", len(out)),
		logging.Int("max_videos", e.maxVideos),
	)
	if len(out) == 0 {
		return nil
	}
	return out
}
