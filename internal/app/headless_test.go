package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sha1n/mcp-orange-server/internal/config"
	"github.com/sha1n/mcp-orange-server/internal/domain"
	"github.com/sha1n/mcp-orange-server/internal/filesearch"
	"github.com/spf13/pflag"
)

// headlessParams returns params that open a service over home plus one root,
// both created under temporary directories.
func headlessParams(t *testing.T) (RunParams, config.IndexSettings, string) {
	t.Helper()
	idx := testIndexSettings(t)
	root := filepath.Join(t.TempDir(), "srv")

	for _, path := range []string{
		filepath.Join(idx.HomeDir, "notes.md"),
		filepath.Join(idx.HomeDir, "docs", "report.pdf"),
		filepath.Join(root, "data", "c.log"),
	} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}

	params := RunParams{
		LoadSettings: func(*pflag.FlagSet) (*config.Settings, error) {
			return &config.Settings{Transport: "stdio", Index: idx}, nil
		},
		ValidSettings: noopValidate,
		OpenService:   openStatic(root),
		LogOutput:     &bytes.Buffer{},
	}
	return params, idx, root
}

func TestRunWalk_ThenSearchAndSuggest(t *testing.T) {
	params, idx, _ := headlessParams(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := RunWalk(ctx, params, nil, false, &out); err != nil {
		t.Fatalf("RunWalk failed: %v", err)
	}
	if !strings.Contains(out.String(), "phase=idle percent=100") {
		t.Errorf("Unexpected walk output: %s", out.String())
	}

	out.Reset()
	if err := RunSearch(ctx, params, nil, domain.SearchRequest{Text: "report"}, &out); err != nil {
		t.Fatalf("RunSearch failed: %v", err)
	}
	want := filepath.Join(idx.HomeDir, "docs", "report.pdf")
	if strings.TrimSpace(out.String()) != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}

	out.Reset()
	if err := RunSuggest(ctx, params, nil, "no", 0, &out); err != nil {
		t.Fatalf("RunSuggest failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "notes.md\t") {
		t.Errorf("Unexpected suggest output: %q", out.String())
	}
}

func TestRunWalk_Reindex(t *testing.T) {
	params, _, root := headlessParams(t)
	ctx := context.Background()

	if err := RunWalk(ctx, params, nil, false, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunWalk failed: %v", err)
	}

	late := filepath.Join(root, "late.txt")
	if err := os.WriteFile(late, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	var out bytes.Buffer
	if err := RunWalk(ctx, params, nil, false, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunWalk failed: %v", err)
	}
	if err := RunSearch(ctx, params, nil, domain.SearchRequest{Text: "late"}, &out); err != nil {
		t.Fatalf("RunSearch failed: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected checkpointed root to be skipped, got %q", out.String())
	}

	if err := RunWalk(ctx, params, nil, true, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunWalk reindex failed: %v", err)
	}
	out.Reset()
	if err := RunSearch(ctx, params, nil, domain.SearchRequest{Text: "late"}, &out); err != nil {
		t.Fatalf("RunSearch failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != late {
		t.Errorf("Expected %q after reindex, got %q", late, out.String())
	}
}

func TestRunSearch_Filters(t *testing.T) {
	params, _, _ := headlessParams(t)
	ctx := context.Background()

	if err := RunWalk(ctx, params, nil, false, &bytes.Buffer{}); err != nil {
		t.Fatalf("RunWalk failed: %v", err)
	}

	isDir := true
	var out bytes.Buffer
	if err := RunSearch(ctx, params, nil, domain.SearchRequest{Text: "d", IsDir: &isDir}, &out); err != nil {
		t.Fatalf("RunSearch failed: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		info, err := os.Stat(line)
		if err != nil || !info.IsDir() {
			t.Errorf("Expected a directory, got %q", line)
		}
	}

	ext := "log"
	out.Reset()
	if err := RunSearch(ctx, params, nil, domain.SearchRequest{Extension: &ext}, &out); err != nil {
		t.Fatalf("RunSearch failed: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out.String()), "c.log") {
		t.Errorf("Expected c.log, got %q", out.String())
	}
}

func TestHeadless_OpenError(t *testing.T) {
	params, _, _ := headlessParams(t)
	params.OpenService = func(context.Context, *config.Settings) (*filesearch.Service, error) {
		return nil, errors.New("locked")
	}

	if err := RunSearch(context.Background(), params, nil, domain.SearchRequest{}, &bytes.Buffer{}); err == nil {
		t.Error("Expected open error")
	}
}

func TestHeadless_LoadError(t *testing.T) {
	params, _, _ := headlessParams(t)
	params.LoadSettings = func(*pflag.FlagSet) (*config.Settings, error) {
		return nil, errors.New("bad env")
	}

	err := RunWalk(context.Background(), params, nil, false, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "failed to load settings") {
		t.Errorf("Expected load error, got: %v", err)
	}
}
