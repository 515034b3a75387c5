package sage_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sagecouncil/council/pkg/sage"
)

func TestDefaultCatalogue(t *testing.T) {
	r := sage.Default()
	if r.Len() == 0 {
		t.Fatal("default catalogue is empty")
	}

	b := r.Lookup("buddha")
	if b == nil {
		t.Fatal("buddha not in default catalogue")
	}
	if b.Name != "Buddha" {
		t.Fatalf("Lookup(buddha).Name = %q", b.Name)
	}
	if !strings.Contains(b.Placeholder(), "Buddha") {
		t.Fatalf("placeholder should carry the sage name, got %q", b.Placeholder())
	}
	if !strings.Contains(b.Placeholder(), "deep meditation") {
		t.Fatalf("unexpected placeholder text: %q", b.Placeholder())
	}

	if r.Lookup("no-such-sage") != nil {
		t.Fatal("Lookup of unknown id should return nil")
	}
}

func TestResolve(t *testing.T) {
	r := sage.Default()

	resolved, unknown := r.Resolve([]string{"jesus", "buddha", "jesus", "ghost", "rumi"})

	var ids []string
	for _, s := range resolved {
		ids = append(ids, s.ID)
	}
	// Order preserved, duplicate jesus collapsed.
	want := []string{"jesus", "buddha", "rumi"}
	if !slices.Equal(ids, want) {
		t.Fatalf("Resolve ids = %v, want %v", ids, want)
	}
	if !slices.Equal(unknown, []string{"ghost"}) {
		t.Fatalf("unknown = %v, want [ghost]", unknown)
	}
}

func TestResolveAllUnknown(t *testing.T) {
	r := sage.Default()
	resolved, unknown := r.Resolve([]string{"a", "b", "a"})
	if len(resolved) != 0 {
		t.Fatalf("resolved = %v, want none", resolved)
	}
	if !slices.Equal(unknown, []string{"a", "b"}) {
		t.Fatalf("unknown = %v", unknown)
	}
}

func TestNewRegistryDuplicateKeepsFirst(t *testing.T) {
	r := sage.NewRegistry([]sage.Sage{
		{ID: "x", Name: "First", Prompt: "p"},
		{ID: "x", Name: "Second", Prompt: "p"},
	})
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	if got := r.Lookup("x").Name; got != "First" {
		t.Fatalf("duplicate id should keep the first definition, got %q", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sages.yaml")
	data := `
- id: tester
  name: The Tester
  title: Keeper of Green Builds
  prompt: Answer tersely.
- id: second
  name: Second Voice
  title: Backup
  prompt: Answer at length.
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := sage.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	s := r.Lookup("tester")
	if s == nil || s.Title != "Keeper of Green Builds" {
		t.Fatalf("Lookup(tester) = %+v", s)
	}
}

func TestLoadRejectsIncomplete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sages.yaml")
	if err := os.WriteFile(path, []byte("- id: x\n  name: X\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := sage.Load(path); err == nil {
		t.Fatal("Load should reject entries without a prompt")
	}
}
