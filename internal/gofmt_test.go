package internal

import (
	"bytes"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestGofmtCompliance fails if any Go file under internal/ or cmd/ is not
// gofmt-clean. Fix with: gofmt -w ./internal/ ./cmd/
func TestGofmtCompliance(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	root := wd
	if filepath.Base(wd) == "internal" {
		root = filepath.Dir(wd)
	}

	var unformatted []string
	for _, dir := range []string{filepath.Join(root, "internal"), filepath.Join(root, "cmd")} {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".go") {
				return nil
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			formatted, err := format.Source(src)
			if err != nil {
				t.Errorf("%s: %v", path, err)
				return nil
			}
			if !bytes.Equal(src, formatted) {
				rel, _ := filepath.Rel(root, path)
				unformatted = append(unformatted, rel)
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			t.Fatalf("walking %s: %v", dir, err)
		}
	}

	if len(unformatted) > 0 {
		t.Errorf("files not gofmt-formatted:\n  %s", strings.Join(unformatted, "\n  "))
	}
}
