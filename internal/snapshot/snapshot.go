// Package snapshot persists the questions of a run as JSON files.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pricofy/quizlate/internal/domain"
)

// SourceFile holds the scraped English questions of a run.
const SourceFile = "questions_english.json"

var ErrNoQuestions = errors.New("no questions to save")

// TranslatedFile returns the file name for questions translated into lang.
func TranslatedFile(lang string) string {
	return fmt.Sprintf("questions_%s.json", lang)
}

// Run is one output directory named by a ULID, so runs sort by start time.
type Run struct {
	ID  ulid.ULID
	Dir string
}

// NewRun creates a fresh run directory under root.
func NewRun(root string, now time.Time) (*Run, error) {
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())
	dir := filepath.Join(root, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run dir: %w", err)
	}
	slog.Info("Created run directory", "run_id", id.String(), "dir", dir)
	return &Run{ID: id, Dir: dir}, nil
}

// Open returns the run stored in dir.
func Open(dir string) (*Run, error) {
	id, err := ulid.ParseStrict(filepath.Base(dir))
	if err != nil {
		return nil, fmt.Errorf("run dir %q: %w", dir, err)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return &Run{ID: id, Dir: dir}, nil
}

// Started returns the time encoded in the run ID.
func (r *Run) Started() time.Time {
	return ulid.Time(r.ID.Time())
}

// Path returns the location of name inside the run.
func (r *Run) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// Save writes questions to name as indented JSON.
func (r *Run) Save(name string, questions []domain.Question) (string, error) {
	if len(questions) == 0 {
		return "", ErrNoQuestions
	}
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}

	path := r.Path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}

	slog.Info("Saved questions", "file", path, "count", len(questions))
	return path, nil
}

// Load reads the questions stored in name.
func (r *Run) Load(name string) ([]domain.Question, error) {
	return Read(r.Path(name))
}

// Read decodes a question file.
func Read(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return questions, nil
}
