// Package audit keeps a git-backed history of form submissions. Each accepted
// submission is one commit touching the patient's file, so every prior
// version of a form stays recoverable.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Entry is one recorded submission.
type Entry struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	mu      sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{baseDir: baseDir}
}

// RecordSubmission writes the form to the patient's file and commits it.
func (s *Service) RecordSubmission(patientID string, form json.RawMessage) error {
	if patientID == "" {
		return errors.New("patient identifier is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.ensureRepo()
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	rel := filepath.Join("forms", patientID+".json")
	abs := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create forms dir: %w", err)
	}

	var pretty []byte
	var parsed any
	if err := json.Unmarshal(form, &parsed); err == nil {
		pretty, _ = json.MarshalIndent(parsed, "", "  ")
	}
	if pretty == nil {
		pretty = form
	}
	if err := os.WriteFile(abs, append(pretty, '\n'), 0o644); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}

	if _, err := worktree.Add(rel); err != nil {
		return fmt.Errorf("git add form: %w", err)
	}

	_, err = worktree.Commit(fmt.Sprintf("Form submission for patient %s", patientID), &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  "qolintake",
			Email: "intake@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit form: %w", err)
	}
	return nil
}

// History returns the patient's submission commits, newest first. A missing
// repository or an unknown patient yields an empty history, not an error.
func (s *Service) History(patientID string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.baseDir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("open audit repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	rel := filepath.Join("forms", patientID+".json")
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), FileName: &rel})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	entries := make([]Entry, 0, limit)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		entries = append(entries, Entry{
			Hash:      commitObj.Hash.String()[:7],
			Message:   commitObj.Message,
			Author:    commitObj.Author.Name,
			CreatedAt: commitObj.Author.When,
		})
		if limit > 0 && len(entries) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return entries, nil
}

func (s *Service) ensureRepo() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.baseDir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open audit repo: %w", err)
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	repo, err = git.PlainInit(s.baseDir, false)
	if err != nil {
		return nil, fmt.Errorf("init audit repo: %w", err)
	}
	return repo, nil
}
