package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"document-qa/internal/helper"
	"document-qa/internal/models"
)

const sessionExt = ".json"

// FileStore keeps one JSON array file per session.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := helper.CreateFolder(dir); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if !models.IsValidSessionID(id) || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("session id %q: %w", id, models.ErrInvalidInput)
	}
	return filepath.Join(s.dir, id+sessionExt), nil
}

func (s *FileStore) Create(ctx context.Context) (string, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	if err := s.Ensure(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *FileStore) Ensure(_ context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return writeHistory(path, []models.ChatMessage{})
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	ids := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sessionExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), sessionExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// History returns the messages of id, or ErrSessionNotFound when the session
// file does not exist. An unreadable file reads as an empty history.
func (s *FileStore) History(_ context.Context, id string) ([]models.ChatMessage, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("session %q: %w", id, models.ErrSessionNotFound)
	}
	return readHistory(path), nil
}

func (s *FileStore) Append(_ context.Context, id string, msg models.ChatMessage) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(readHistory(path), msg)
	return writeHistory(path, history)
}

func (s *FileStore) Delete(_ context.Context, id string) (bool, error) {
	path, err := s.path(id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return true, nil
}

// readHistory treats a missing or unreadable file as an empty history.
func readHistory(path string) []models.ChatMessage {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Unreadable chat history")
		}
		return []models.ChatMessage{}
	}
	var history []models.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Corrupt chat history, starting over")
		return []models.ChatMessage{}
	}
	if history == nil {
		history = []models.ChatMessage{}
	}
	return history
}

func writeHistory(path string, history []models.ChatMessage) error {
	data, err := helper.MarshalIndent(history)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, bytes.TrimSpace(data), 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
