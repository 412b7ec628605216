package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSampleAndRefusesOverwrite(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Inbox: not configured")
}

func TestConfigValidateRejectsBadSchedule(t *testing.T) {
	env := setupCLITestEnv(t)
	data, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatal(err)
	}
	bad := string(data) + "\n[watch]\nschedule = \"every now and then\"\n"
	if err := os.WriteFile(env.configPath, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected invalid schedule to fail validation")
	}
}

func TestExtractReadsStdin(t *testing.T) {
	text := "look at https://youtu.be/aaa and https://example.com/nope then https://www.instagram.com/p/BBB/?igsh=1"
	out, _, err := runCLIWithInput(t, []string{"extract"}, "", text)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"https://youtu.be/aaa", "https://www.instagram.com/p/BBB"}
	if len(lines) != len(want) {
		t.Fatalf("extract lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestExtractJSONIncludesFamily(t *testing.T) {
	out, _, err := runCLI(t, []string{"--json", "extract", "see https://youtu.be/aaa"}, "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var links []extractedLink
	if err := json.Unmarshal([]byte(out), &links); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(links) != 1 || links[0].Family != "youtube" || links[0].Playlist {
		t.Fatalf("unexpected links: %+v", links)
	}
}

func TestDownloadRecordsLedgerAndSkipsRepeats(t *testing.T) {
	env := setupCLITestEnv(t)
	urls := []string{"https://youtu.be/aaa", "https://www.instagram.com/p/BBB"}

	out, _, err := runCLI(t, append([]string{"--json", "download", "Morning clips"}, urls...), env.configPath)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	var result downloadResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(result.Saved) != 2 {
		t.Fatalf("saved = %v, want 2 files", result.Saved)
	}
	for _, path := range result.Saved {
		if filepath.Dir(path) != env.downloadDir {
			t.Fatalf("saved outside download dir: %s", path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("saved file missing: %v", err)
		}
	}

	out, _, err = runCLI(t, []string{"download", "Morning clips", urls[0]}, env.configPath)
	if err != nil {
		t.Fatalf("repeat download: %v", err)
	}
	requireContains(t, out, "No new videos saved")

	out, _, err = runCLI(t, []string{"ledger", "check", urls[0], "https://youtu.be/zzz"}, env.configPath)
	if err != nil {
		t.Fatalf("ledger check: %v", err)
	}
	requireContains(t, out, "seen\t"+urls[0])
	requireContains(t, out, "new\thttps://youtu.be/zzz")

	out, _, err = runCLI(t, []string{"--json", "ledger", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("ledger stats: %v", err)
	}
	var stats ledgerStatsView
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v\n%s", err, out)
	}
	if stats.URLCount != 2 || stats.ContentCount != 2 {
		t.Fatalf("stats = %+v, want 2 urls and 2 contents", stats)
	}
}

func TestDownloadDiscardsDuplicateContent(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("FACTFETCH_STUB_CONTENT", "same bytes")

	out, _, err := runCLI(t, []string{"--json", "download", "Dupes", "https://youtu.be/one", "https://youtu.be/two"}, env.configPath)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	var result downloadResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(result.Saved) != 1 {
		t.Fatalf("saved = %v, want exactly one file", result.Saved)
	}
	entries, err := os.ReadDir(env.downloadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("download dir holds %d files, want 1", len(entries))
	}

	out, _, err = runCLI(t, []string{"ledger", "check", "https://youtu.be/two"}, env.configPath)
	if err != nil {
		t.Fatalf("ledger check: %v", err)
	}
	requireContains(t, out, "seen\t")
}

func TestDownloadTextExtractsLinks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"download", "--text", "Notes", "watch", "https://youtu.be/txt1", "now"}, env.configPath)
	if err != nil {
		t.Fatalf("download --text: %v", err)
	}
	requireContains(t, out, "Saved Notes_")
}

func TestLedgerListsAreEmptyOnFreshStore(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"ledger", "urls"}, env.configPath)
	if err != nil {
		t.Fatalf("ledger urls: %v", err)
	}
	requireContains(t, out, "Ledger has no URLs")

	out, _, err = runCLI(t, []string{"ledger", "contents"}, env.configPath)
	if err != nil {
		t.Fatalf("ledger contents: %v", err)
	}
	requireContains(t, out, "Ledger has no content fingerprints")
}

func TestDoctorPassesWithStubDownloader(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	var checks []checkView
	if err := json.Unmarshal([]byte(out), &checks); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	found := false
	for _, c := range checks {
		if c.Name == "yt-dlp" {
			found = true
			if !c.Passed {
				t.Fatalf("yt-dlp check failed: %+v", c)
			}
		}
	}
	if !found {
		t.Fatalf("yt-dlp check missing from %+v", checks)
	}
}

func TestRunRequiresInboxCredentials(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "inbox.address") {
		t.Fatalf("expected inbox credential error, got %v", err)
	}
}
