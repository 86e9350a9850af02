package source

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readAll(t *testing.T, open func() (io.ReadCloser, error)) string {
	t.Helper()

	rc, err := open()
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() returned error: %v", err)
	}
	return string(data)
}

func TestPathSource(t *testing.T) {
	t.Parallel()

	t.Run("empty path selects nothing", func(t *testing.T) {
		t.Parallel()

		if f, ok := NewPathSource("").Selected(); ok || f != nil {
			t.Errorf("Selected() = (%v, %v), expected nothing", f, ok)
		}
	})

	t.Run("file on disk", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "sales.csv")
		if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		f, ok := NewPathSource(path).Selected()
		if !ok {
			t.Fatal("expected a selected file")
		}
		if f.Name() != "sales.csv" {
			t.Errorf("Name() = %q, expected base name", f.Name())
		}
		if got := readAll(t, f.Open); got != "a,b\n1,2\n" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("missing file fails on open", func(t *testing.T) {
		t.Parallel()

		f, ok := NewPathSource(filepath.Join(t.TempDir(), "missing.csv")).Selected()
		if !ok {
			t.Fatal("expected a selected file")
		}
		if _, err := f.Open(); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected fs.ErrNotExist, got %v", err)
		}
	})
}

func TestReaderSource(t *testing.T) {
	t.Parallel()

	if f, ok := NewReaderSource("none.csv", nil).Selected(); ok || f != nil {
		t.Errorf("Selected() = (%v, %v), expected nothing for nil reader", f, ok)
	}

	f, ok := NewReaderSource("data.csv", strings.NewReader("1,2\n")).Selected()
	if !ok {
		t.Fatal("expected a selected file")
	}
	if f.Name() != "data.csv" {
		t.Errorf("Name() = %q", f.Name())
	}
	if got := readAll(t, f.Open); got != "1,2\n" {
		t.Errorf("content = %q", got)
	}
}
