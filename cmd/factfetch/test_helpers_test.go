package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// stubDownloader writes the URL (or FACTFETCH_STUB_CONTENT) to the -o path.
const stubDownloader = `#!/bin/sh
out=""
prev=""
last=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
  last="$arg"
done
if [ -z "$out" ]; then exit 0; fi
if [ -n "$FACTFETCH_STUB_CONTENT" ]; then
  printf '%s' "$FACTFETCH_STUB_CONTENT" > "$out"
else
  printf 'video:%s' "$last" > "$out"
fi
`

type cliTestEnv struct {
	baseDir     string
	configPath  string
	downloadDir string
	ledgerPath  string
	binary      string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"GMAIL_ADDRESS", "GMAIL_APP_PASSWORD", "ALLOWED_SENDERS", "NTFY_TOPIC", "MAX_PLAYLIST_VIDEOS", "LOG_LEVEL", "FACTFETCH_STUB_CONTENT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	binary := filepath.Join(base, "bin", "yt-dlp")
	if err := os.MkdirAll(filepath.Dir(binary), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(binary, []byte(stubDownloader), 0o755); err != nil {
		t.Fatalf("write stub downloader: %v", err)
	}

	env := &cliTestEnv{
		baseDir:     base,
		configPath:  filepath.Join(base, "config.toml"),
		downloadDir: filepath.Join(base, "videos"),
		ledgerPath:  filepath.Join(base, "state", "ledger.db"),
		binary:      binary,
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
download_dir = %q
ledger_path = %q
log_dir = %q

[downloader]
binary = %q
max_attempts = 1
backoff_step_seconds = 0
min_delay_seconds = 0
max_delay_seconds = 0
attempt_timeout_seconds = 30

[transcription]
enabled = false

[logging]
level = "error"
`, env.downloadDir, env.ledgerPath, filepath.Join(env.baseDir, "logs"), env.binary)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, "")
}

func runCLIWithInput(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
