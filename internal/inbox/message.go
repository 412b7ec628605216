package inbox

import (
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"factfetch/internal/linkextract"
)

// maxBodyBytes caps how much of a text part is read.
const maxBodyBytes = 1 << 20

// Message is a parsed mail carrying a link batch.
type Message struct {
	UID       uint32
	Subject   string
	From      string
	URLs      []string
	FactCheck bool
}

// ParseMessage reads one RFC 5322 message. It reports accepted=false when the
// sender is not in allowed (lower-cased addresses). An empty allow-list
// accepts nobody.
func ParseMessage(r io.Reader, allowed []string, keyword string) (Message, bool, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return Message{}, false, fmt.Errorf("parse message: %w", err)
	}
	if mr == nil {
		return Message{}, false, errors.New("parse message: no reader")
	}

	var msg Message
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = strings.ToLower(strings.TrimSpace(from[0].Address))
	}
	if !senderAllowed(msg.From, allowed) {
		return msg, false, nil
	}

	subject, err := mr.Header.Subject()
	if err != nil && !message.IsUnknownCharset(err) {
		subject = mr.Header.Get("Subject")
	}
	msg.Subject = strings.TrimSpace(subject)

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	msg.FactCheck = keyword != "" && strings.Contains(strings.ToLower(msg.Subject), keyword)

	body, err := readBody(mr)
	if err != nil {
		return msg, true, err
	}
	msg.URLs = linkextract.Extract(body)
	return msg, true, nil
}

func senderAllowed(from string, allowed []string) bool {
	if from == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), from) {
			return true
		}
	}
	return false
}

// readBody returns the first text/plain part, or the first text/html part
// when no plain part exists.
func readBody(mr *mail.Reader) (string, error) {
	var htmlBody string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", fmt.Errorf("read message part: %w", err)
		}
		if part == nil {
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		switch strings.ToLower(contentType) {
		case "text/plain", "":
			data, err := io.ReadAll(io.LimitReader(part.Body, maxBodyBytes))
			if err != nil {
				return "", fmt.Errorf("read text part: %w", err)
			}
			return string(data), nil
		case "text/html":
			if htmlBody != "" {
				continue
			}
			data, err := io.ReadAll(io.LimitReader(part.Body, maxBodyBytes))
			if err != nil {
				return "", fmt.Errorf("read html part: %w", err)
			}
			htmlBody = html.UnescapeString(string(data))
		}
	}
	return htmlBody, nil
}
