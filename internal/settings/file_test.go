package settings

import (
	"os"
	"path/filepath"
	"testing"

	ncerr "lanshare/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"settings.toml", "TransferPort = 50000\nNickname = \"desk\"\n"},
		{"settings.yaml", "TransferPort: 50000\nNickname: desk\n"},
		{"settings.yml", "TransferPort: 50000\nNickname: desk\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := ReadFile(writeFile(t, dir, tt.name, tt.content))
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if n, err := toInt(values["TransferPort"]); err != nil || n != 50000 {
				t.Errorf("TransferPort = %#v", values["TransferPort"])
			}
			if values["Nickname"] != "desk" {
				t.Errorf("Nickname = %#v", values["Nickname"])
			}
		})
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(writeFile(t, dir, "settings.ini", "TransferPort=1"))
	var ce *ncerr.ConfigError
	if !ncerr.As(err, &ce) {
		t.Errorf("unsupported extension: err = %v, want ConfigError", err)
	}

	if _, err := ReadFile(writeFile(t, dir, "bad.toml", "TransferPort = = 1")); err == nil {
		t.Error("expected TOML parse error")
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
