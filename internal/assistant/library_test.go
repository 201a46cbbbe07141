package assistant

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testLibrary(t *testing.T) *Library {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "blueprints", "checkout-flow.txt"), "Checkout happens in three steps.")
	writeFile(t, filepath.Join(root, "docs", "returns-policy.md"), "Returns are accepted within 30 days.")
	writeFile(t, filepath.Join(root, "courses", "golang", "basics.md"), "Go basics course content.")

	return NewLibrary(LibraryConfig{
		BlueprintDir: filepath.Join(root, "blueprints"),
		DocDir:       filepath.Join(root, "docs"),
		CourseDir:    filepath.Join(root, "courses"),
	})
}

func TestLibrary_MatchBlueprintByBasename(t *testing.T) {
	lib := testLibrary(t)

	match, ok := lib.Match("How does the checkout-flow work?")
	if !ok {
		t.Fatal("expected a blueprint match")
	}
	if match.Key != "checkout-flow" {
		t.Errorf("matched %q, want checkout-flow", match.Key)
	}
	if !strings.Contains(match.Content, "Checkout happens in three steps.") {
		t.Errorf("content missing blueprint text: %q", match.Content)
	}
}

func TestLibrary_MatchDocByNumberedKey(t *testing.T) {
	lib := testLibrary(t)

	match, ok := lib.Match("show me doc-01 please")
	if !ok {
		t.Fatal("expected a doc match")
	}
	if match.Key != "doc-01" {
		t.Errorf("matched %q, want doc-01", match.Key)
	}
	if !strings.Contains(match.Content, "Returns are accepted") {
		t.Errorf("content missing doc text: %q", match.Content)
	}
}

func TestLibrary_MatchCourseByPathPart(t *testing.T) {
	lib := testLibrary(t)

	match, ok := lib.Match("anything about golang here?")
	if !ok {
		t.Fatal("expected a course match")
	}
	if !strings.HasPrefix(match.Key, "course-") {
		t.Errorf("matched %q, want a course key", match.Key)
	}
	if !strings.Contains(match.Content, "Go basics course content.") {
		t.Errorf("content missing course text: %q", match.Content)
	}
}

func TestLibrary_NoMatch(t *testing.T) {
	lib := testLibrary(t)

	if _, ok := lib.Match("what is the weather today?"); ok {
		t.Error("expected no match for unrelated message")
	}
}

// Blueprints outrank docs and courses; only one injection per turn.
func TestLibrary_PriorityFirstMatchWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "blueprints", "pricing.txt"), "blueprint content")
	writeFile(t, filepath.Join(root, "courses", "pricing", "intro.txt"), "course content")

	lib := NewLibrary(LibraryConfig{
		BlueprintDir: filepath.Join(root, "blueprints"),
		CourseDir:    filepath.Join(root, "courses"),
	})

	match, ok := lib.Match("tell me about pricing")
	if !ok {
		t.Fatal("expected a match")
	}
	if match.Key != "pricing" {
		t.Errorf("blueprint should win over course, matched %q", match.Key)
	}
	if strings.Contains(match.Content, "course content") {
		t.Error("only the blueprint should be injected")
	}
}

func TestLibrary_TruncatesLongContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "blueprints", "catalog.txt"), strings.Repeat("x", contentCap+500))

	lib := NewLibrary(LibraryConfig{BlueprintDir: filepath.Join(root, "blueprints")})

	match, ok := lib.Match("explain the catalog")
	if !ok {
		t.Fatal("expected a match")
	}
	if !strings.Contains(match.Content, truncationMarker) {
		t.Error("long content should carry the truncation marker")
	}
	if strings.Count(match.Content, "x") != contentCap {
		t.Errorf("content should be cut at %d chars", contentCap)
	}
}

func TestLibrary_ShortContentNotTruncated(t *testing.T) {
	lib := testLibrary(t)

	match, _ := lib.Match("checkout-flow")
	if strings.Contains(match.Content, truncationMarker) {
		t.Error("short content should not carry the truncation marker")
	}
}

func TestLibrary_MissingDirsAreEmpty(t *testing.T) {
	lib := NewLibrary(LibraryConfig{
		BlueprintDir: "/nonexistent/blueprints",
		DocDir:       "/nonexistent/docs",
		CourseDir:    "/nonexistent/courses",
	})
	if _, ok := lib.Match("checkout-flow"); ok {
		t.Error("empty library should never match")
	}
	if lib.ResourceDirectory() != "" {
		t.Error("empty library should have no resource directory")
	}
}

func TestLibrary_ResourceDirectory(t *testing.T) {
	lib := testLibrary(t)

	dir := lib.ResourceDirectory()
	if !strings.Contains(dir, "=== AVAILABLE RESOURCES ===") {
		t.Errorf("missing header: %q", dir)
	}
	if !strings.Contains(dir, "checkout-flow") {
		t.Errorf("missing blueprint key: %q", dir)
	}
	if !strings.Contains(dir, "returns-policy.md") {
		t.Errorf("missing doc name: %q", dir)
	}
	if !strings.Contains(dir, "1 files in total") {
		t.Errorf("missing course count: %q", dir)
	}
}
