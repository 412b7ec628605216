package inbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"factfetch/internal/config"
	"factfetch/internal/logging"
)

const defaultCommandTimeout = 2 * time.Minute

// Dialer opens an IMAP connection to addr.
type Dialer func(addr string) (*client.Client, error)

// Option configures an IMAPSource.
type Option func(*IMAPSource)

// WithDialer replaces the TLS dialer (primarily for tests).
func WithDialer(d Dialer) Option {
	return func(s *IMAPSource) {
		if d != nil {
			s.dial = d
		}
	}
}

// IMAPSource polls one mailbox for unseen messages from trusted senders.
type IMAPSource struct {
	cfg    config.Inbox
	dial   Dialer
	logger *slog.Logger
}

// Poll reports the messages found in one pass.
type Poll struct {
	// Batches are accepted messages that carried at least one link.
	Batches []Message
	// Handled lists every fetched UID that needs no further work: rejected
	// senders, link-less mail and unparseable messages.
	Handled []uint32
}

// NewIMAPSource builds a source over cfg.
func NewIMAPSource(cfg config.Inbox, logger *slog.Logger, opts ...Option) *IMAPSource {
	s := &IMAPSource{
		cfg: cfg,
		dial: func(addr string) (*client.Client, error) {
			return client.DialTLS(addr, nil)
		},
		logger: logging.NewComponentLogger(logger, "inbox"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Unseen fetches unseen messages without marking them seen.
func (s *IMAPSource) Unseen(ctx context.Context) (Poll, error) {
	var poll Poll
	logger := logging.WithContext(ctx, s.logger)

	c, err := s.connect(ctx)
	if err != nil {
		return poll, err
	}
	defer s.logout(c)

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return poll, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		logger.Info("no unseen messages")
		return poll, nil
	}
	if err := ctx.Err(); err != nil {
		return poll, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	type rawMessage struct {
		uid  uint32
		body []byte
	}
	var raws []rawMessage
	for m := range messages {
		body := m.GetBody(section)
		if body == nil {
			poll.Handled = append(poll.Handled, m.Uid)
			continue
		}
		data, err := io.ReadAll(body)
		if err != nil {
			logger.Warn("read message body failed", logging.Int64("uid", int64(m.Uid)), logging.Error(err))
			continue
		}
		raws = append(raws, rawMessage{uid: m.Uid, body: data})
	}
	if err := <-done; err != nil {
		return poll, fmt.Errorf("fetch messages: %w", err)
	}

	for _, raw := range raws {
		msg, accepted, err := ParseMessage(bytes.NewReader(raw.body), s.cfg.AllowedSenders, s.cfg.FactCheckKeyword)
		msg.UID = raw.uid
		msgLogger := logger.With(logging.Int64("uid", int64(raw.uid)), logging.String("from", msg.From))
		switch {
		case err != nil:
			logging.WarnWithContext(msgLogger, "message could not be parsed; marking seen", "message_parse_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "links in this message are ignored"),
			)
			poll.Handled = append(poll.Handled, raw.uid)
		case !accepted:
			msgLogger.Info("ignoring message from untrusted sender")
			poll.Handled = append(poll.Handled, raw.uid)
		case len(msg.URLs) == 0:
			msgLogger.Info("message has no recognized links", logging.String(logging.FieldSubject, msg.Subject))
			poll.Handled = append(poll.Handled, raw.uid)
		default:
			msgLogger.Info("message accepted",
				logging.String(logging.FieldSubject, msg.Subject),
				logging.Int("urls", len(msg.URLs)),
				logging.Bool("factcheck", msg.FactCheck),
			)
			poll.Batches = append(poll.Batches, msg)
		}
	}
	return poll, nil
}

// MarkSeen sets \Seen on uids.
func (s *IMAPSource) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.logout(c)

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	flags := []interface{}{imap.SeenFlag}
	if err := c.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

func (s *IMAPSource) connect(ctx context.Context) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.cfg.Address) == "" || s.cfg.AppPassword == "" {
		return nil, errors.New("inbox credentials not configured")
	}

	c, err := s.dial(s.cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", s.cfg.Server, err)
	}
	c.Timeout = defaultCommandTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < c.Timeout {
			c.Timeout = remaining
		}
	}

	if err := c.Login(s.cfg.Address, s.cfg.AppPassword); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login as %s: %w", s.cfg.Address, err)
	}
	mailbox := s.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("select %s: %w", mailbox, err)
	}
	return c, nil
}

func (s *IMAPSource) logout(c *client.Client) {
	if err := c.Logout(); err != nil {
		s.logger.Debug("imap logout failed", logging.Error(err))
	}
}
