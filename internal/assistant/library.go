package assistant

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// contentCap bounds how much reference text is injected into a single
// chat turn.
const contentCap = 3000

// truncationMarker is appended whenever reference content gets cut at
// the cap.
const truncationMarker = "\n\n[... truncated for brevity]"

// entry is one reference file the library knows about.
type entry struct {
	key  string
	name string
	path string
}

// Match is a piece of reference content selected for injection.
type Match struct {
	Key     string
	Content string
}

// LibraryConfig names the directories scanned for reference collections.
// Missing directories are fine; the collection is simply empty.
type LibraryConfig struct {
	BlueprintDir string
	DocDir       string
	CourseDir    string
	Logger       *logging.Logger
}

// Library holds the reference collections the assistant can pull into a
// conversation: blueprints, numbered documents, and course files. All
// scanning happens once at construction; matching reads the file fresh
// so edited content is picked up without a restart.
type Library struct {
	blueprints []entry
	docs       []entry
	courses    []entry
	logger     *logging.Logger
}

func NewLibrary(cfg LibraryConfig) *Library {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	l := &Library{logger: logger}

	l.blueprints = scanBlueprints(cfg.BlueprintDir)
	l.docs = scanDocs(cfg.DocDir)
	l.courses = scanCourses(cfg.CourseDir)

	logger.Info("reference library loaded",
		"blueprints", len(l.blueprints), "docs", len(l.docs), "courses", len(l.courses))
	return l
}

// scanBlueprints keys each text file by its lowercased basename.
func scanBlueprints(dir string) []entry {
	if dir == "" {
		return nil
	}
	listing, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var entries []entry
	for _, f := range listing {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		key := strings.ToLower(strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())))
		entries = append(entries, entry{key: key, name: f.Name(), path: filepath.Join(dir, f.Name())})
	}
	return entries
}

// scanDocs assigns stable numbered keys (doc-01, doc-02, ...) in
// directory-listing order.
func scanDocs(dir string) []entry {
	if dir == "" {
		return nil
	}
	listing, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var entries []entry
	i := 0
	for _, f := range listing {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		i++
		entries = append(entries, entry{
			key:  fmt.Sprintf("doc-%02d", i),
			name: f.Name(),
			path: filepath.Join(dir, f.Name()),
		})
	}
	return entries
}

// scanCourses walks the course tree and keys each file by its relative
// path with separators flattened to hyphens.
func scanCourses(dir string) []entry {
	if dir == "" {
		return nil
	}
	var entries []entry
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".js", ".txt", ".md", ".html":
		default:
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}
		key := "course-" + strings.ToLower(strings.ReplaceAll(rel, string(filepath.Separator), "-"))
		entries = append(entries, entry{key: key, name: d.Name(), path: path})
		return nil
	})
	return entries
}

// ResourceDirectory renders the resource listing appended to the system
// prompt so the model knows what it can ask users to reference.
func (l *Library) ResourceDirectory() string {
	if len(l.blueprints) == 0 && len(l.docs) == 0 && len(l.courses) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("=== AVAILABLE RESOURCES ===\n")
	if len(l.blueprints) > 0 {
		b.WriteString("Blueprints: " + strings.Join(keys(l.blueprints), ", ") + "\n")
	}
	if len(l.docs) > 0 {
		b.WriteString("Documents: " + strings.Join(names(l.docs), ", ") + "\n")
	}
	if len(l.courses) > 0 {
		fmt.Fprintf(&b, "Courses: %d files in total\n", len(l.courses))
	}
	return b.String()
}

// Match scans the collections in fixed priority order, blueprints before
// docs before courses; the first hit wins so at most one piece of content
// is injected per turn.
func (l *Library) Match(message string) (Match, bool) {
	msg := strings.ToLower(message)

	for _, e := range l.blueprints {
		if strings.Contains(msg, e.key) {
			return l.load(e, "Blueprint")
		}
	}
	for _, e := range l.docs {
		if strings.Contains(msg, e.key) {
			return l.load(e, "Document")
		}
	}
	for _, e := range l.courses {
		if courseKeyMatches(e.key, msg) {
			return l.load(e, "Course file")
		}
	}
	return Match{}, false
}

// courseKeyMatches checks the hyphen-separated parts of a course key
// against the message. The leading "course" token and short fragments
// are skipped; they match nearly everything.
func courseKeyMatches(key, msg string) bool {
	parts := strings.Split(key, "-")
	for _, part := range parts[1:] {
		if len(part) < 3 {
			continue
		}
		if strings.Contains(msg, part) {
			return true
		}
	}
	return false
}

func (l *Library) load(e entry, label string) (Match, bool) {
	raw, err := os.ReadFile(e.path)
	if err != nil {
		l.logger.Error("failed to read reference file", "key", e.key, "path", e.path, "error", err)
		return Match{}, false
	}
	content := string(raw)
	if len(content) > contentCap {
		content = content[:contentCap] + truncationMarker
	}
	return Match{
		Key:     e.key,
		Content: fmt.Sprintf("%s: %s\n\n%s", label, e.name, content),
	}, true
}

func keys(entries []entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.key)
	}
	return out
}

func names(entries []entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.name)
	}
	return out
}
