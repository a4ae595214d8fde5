package intake

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadText(t *testing.T) {
	path := writeFile(t, "chat.txt", []byte("\xef\xbb\xbfwe keep disagreeing\r\nlet's vote\r\n"))
	got, err := ReadText(path)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "we keep disagreeing\nlet's vote\n" {
		t.Errorf("got %q", got)
	}
}

func TestReadTextRejectsBinary(t *testing.T) {
	for name, data := range map[string][]byte{
		"nul":     []byte("abc\x00def"),
		"invalid": {0xff, 0xfe, 0x41},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadText(writeFile(t, name, data))
			if !errors.Is(err, ErrNotText) {
				t.Errorf("err = %v, want ErrNotText", err)
			}
		})
	}
}

func TestReadTextDirectory(t *testing.T) {
	_, err := ReadText(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "directory") {
		t.Errorf("err = %v, want directory error", err)
	}
}

func TestReadTextMissing(t *testing.T) {
	_, err := ReadText(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
}
