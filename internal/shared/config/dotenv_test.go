package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvLine(t *testing.T) {
	cases := []struct {
		line string
		key  string
		val  string
		ok   bool
	}{
		{line: "PORT=9090", key: "PORT", val: "9090", ok: true},
		{line: "export MAIL_FROM=\"SST <sst@example.com>\"", key: "MAIL_FROM", val: "SST <sst@example.com>", ok: true},
		{line: "APP_BASE_URL='http://localhost:5173'", key: "APP_BASE_URL", val: "http://localhost:5173", ok: true},
		{line: "APPROVER_ROLE=admin # who signs", key: "APPROVER_ROLE", val: "admin", ok: true},
		{line: "SMTP_PASSWORD=\"a #hash\"", key: "SMTP_PASSWORD", val: "a #hash", ok: true},
		{line: "EMPTY=", key: "EMPTY", val: "", ok: true},
		{line: "# comment"},
		{line: "   "},
		{line: "NO_EQUALS"},
		{line: "BAD KEY=1"},
	}
	for _, tc := range cases {
		key, val, ok := parseEnvLine(tc.line)
		if ok != tc.ok || key != tc.key || val != tc.val {
			t.Fatalf("parseEnvLine(%q) = %q, %q, %v", tc.line, key, val, ok)
		}
	}
}

func TestLoadEnvFilesKeepsProcessEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "SST_DOTENV_SET=from-file\nSST_DOTENV_NEW=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SST_DOTENV_SET", "from-process")
	t.Setenv("SST_DOTENV_NEW", "")
	os.Unsetenv("SST_DOTENV_NEW")

	loadEnvFiles(filepath.Join(dir, "missing.env"), path)

	if got := os.Getenv("SST_DOTENV_SET"); got != "from-process" {
		t.Fatalf("expected process value to win, got %q", got)
	}
	if got := os.Getenv("SST_DOTENV_NEW"); got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
}
