package inbox_test

import (
	"reflect"
	"strings"
	"testing"

	"factfetch/internal/inbox"
)

var allowed = []string{"friend@example.com"}

func rawMessage(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\r\n"))
}

func TestParseMessagePlainText(t *testing.T) {
	r := rawMessage(
		"From: Friend <Friend@Example.com>",
		"To: me@example.com",
		"Subject: Cooking clips",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"look https://youtu.be/abc123 and https://www.instagram.com/reel/XYZ/?igsh=1",
		"",
	)
	msg, ok, err := inbox.ParseMessage(r, allowed, "factcheck")
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if !ok {
		t.Fatal("expected message to be accepted")
	}
	if msg.From != "friend@example.com" {
		t.Fatalf("From = %q", msg.From)
	}
	if msg.Subject != "Cooking clips" {
		t.Fatalf("Subject = %q", msg.Subject)
	}
	if msg.FactCheck {
		t.Fatal("did not expect factcheck flag")
	}
	want := []string{"https://youtu.be/abc123", "https://www.instagram.com/reel/XYZ"}
	if !reflect.DeepEqual(msg.URLs, want) {
		t.Fatalf("URLs = %#v, want %#v", msg.URLs, want)
	}
}

func TestParseMessagePrefersPlainPartInMultipart(t *testing.T) {
	r := rawMessage(
		"From: friend@example.com",
		"Subject: FactCheck this",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"https://www.tiktok.com/@chef/video/42?lang=en",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		`<a href="https://youtu.be/ignored">x</a>`,
		"--b1--",
		"",
	)
	msg, ok, err := inbox.ParseMessage(r, allowed, "factcheck")
	if err != nil || !ok {
		t.Fatalf("ParseMessage ok=%v err=%v", ok, err)
	}
	if !msg.FactCheck {
		t.Fatal("expected case-insensitive keyword match")
	}
	want := []string{"https://www.tiktok.com/@chef/video/42"}
	if !reflect.DeepEqual(msg.URLs, want) {
		t.Fatalf("URLs = %#v, want %#v", msg.URLs, want)
	}
}

func TestParseMessageFallsBackToHTML(t *testing.T) {
	r := rawMessage(
		"From: friend@example.com",
		"Subject: links",
		"Content-Type: text/html; charset=utf-8",
		"",
		`<p><a href="https://www.youtube.com/watch?v=abc&amp;t=5s">video</a></p>`,
		"",
	)
	msg, ok, err := inbox.ParseMessage(r, allowed, "factcheck")
	if err != nil || !ok {
		t.Fatalf("ParseMessage ok=%v err=%v", ok, err)
	}
	want := []string{"https://www.youtube.com/watch?v=abc&t=5s"}
	if !reflect.DeepEqual(msg.URLs, want) {
		t.Fatalf("URLs = %#v, want %#v", msg.URLs, want)
	}
}

func TestParseMessageRejectsUnknownSender(t *testing.T) {
	r := rawMessage(
		"From: stranger@example.org",
		"Subject: hi",
		"",
		"https://youtu.be/abc",
		"",
	)
	msg, ok, err := inbox.ParseMessage(r, allowed, "factcheck")
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if ok {
		t.Fatal("expected sender to be rejected")
	}
	if msg.From != "stranger@example.org" {
		t.Fatalf("From = %q", msg.From)
	}
	if len(msg.URLs) != 0 {
		t.Fatalf("rejected message should not carry links, got %v", msg.URLs)
	}
}

func TestParseMessageEmptyAllowListRejectsEveryone(t *testing.T) {
	r := rawMessage("From: friend@example.com", "Subject: hi", "", "https://youtu.be/abc", "")
	if _, ok, err := inbox.ParseMessage(r, nil, "factcheck"); err != nil || ok {
		t.Fatalf("ParseMessage ok=%v err=%v, want rejected", ok, err)
	}
}

func TestParseMessageDecodesEncodedSubject(t *testing.T) {
	r := rawMessage(
		"From: friend@example.com",
		"Subject: =?UTF-8?B?RmFjdENoZWNrOiBjYWbDqSBjbGFpbXM=?=",
		"",
		"https://youtu.be/abc",
		"",
	)
	msg, ok, err := inbox.ParseMessage(r, allowed, "factcheck")
	if err != nil || !ok {
		t.Fatalf("ParseMessage ok=%v err=%v", ok, err)
	}
	if msg.Subject != "FactCheck: café claims" {
		t.Fatalf("Subject = %q", msg.Subject)
	}
	if !msg.FactCheck {
		t.Fatal("expected factcheck flag from decoded subject")
	}
}

func TestParseMessageWithoutLinks(t *testing.T) {
	r := rawMessage("From: friend@example.com", "Subject: lunch?", "", "see you at noon", "")
	msg, ok, err := inbox.ParseMessage(r, allowed, "factcheck")
	if err != nil || !ok {
		t.Fatalf("ParseMessage ok=%v err=%v", ok, err)
	}
	if msg.URLs != nil {
		t.Fatalf("URLs = %#v, want nil", msg.URLs)
	}
}
