package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	DefaultStorageFileName = ".lp-helper-ledger.json"
)

// Storage persists ledger entries in a JSON file
type Storage struct {
	filePath string
	mu       sync.RWMutex
	entries  map[string]*Entry // keyed by lower-case hash
}

// ledgerFile is the on-disk layout
type ledgerFile struct {
	Entries map[string]*Entry `json:"entries"`
}

// NewStorage opens the ledger at filePath, defaulting to the home directory
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	storage := &Storage{
		filePath: filePath,
		entries:  make(map[string]*Entry),
	}

	if err := storage.load(); err != nil {
		// created on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}
	}

	return storage, nil
}

func key(hash string) string {
	return strings.ToLower(hash)
}

// load reads entries from the ledger file
func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// loadLocked replaces the in-memory entries with the file's. Callers hold s.mu.
func (s *Storage) loadLocked() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal ledger: %w", err)
	}

	s.entries = file.Entries
	if s.entries == nil {
		s.entries = make(map[string]*Entry)
	}
	return nil
}

// Reload re-reads the file, picking up entries written by other processes
func (s *Storage) Reload() error {
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// refreshLocked picks up writes from other processes before a change is
// applied. Callers hold s.mu.
func (s *Storage) refreshLocked() error {
	if err := s.loadLocked(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to reload ledger: %w", err)
	}
	return nil
}

// saveLocked writes entries to disk. Callers hold s.mu.
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(ledgerFile{Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// write to a temp file, then rename for an atomic replace
	temp, err := os.CreateTemp(dir, filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempFile := temp.Name()
	_, err = temp.Write(data)
	if closeErr := temp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Create adds a new entry
func (s *Storage) Create(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return err
	}
	k := key(entry.Hash)
	if _, exists := s.entries[k]; exists {
		return fmt.Errorf("transaction %s already recorded", entry.Hash)
	}
	s.entries[k] = entry
	return s.saveLocked()
}

// Get returns a copy of the entry for hash
func (s *Storage) Get(hash string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[key(hash)]
	if !exists {
		return nil, fmt.Errorf("transaction %s not found", hash)
	}
	cp := *entry
	return &cp, nil
}

// Find returns the entry whose id or hash starts with prefix
func (s *Storage) Find(prefix string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	var found *Entry
	for _, entry := range s.entries {
		if strings.HasPrefix(strings.ToLower(entry.ID), prefix) || strings.HasPrefix(key(entry.Hash), prefix) {
			if found != nil {
				return nil, fmt.Errorf("'%s' matches more than one transaction", prefix)
			}
			found = entry
		}
	}
	if found == nil {
		return nil, fmt.Errorf("transaction '%s' not found", prefix)
	}
	cp := *found
	return &cp, nil
}

// Update replaces an existing entry
func (s *Storage) Update(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return err
	}
	k := key(entry.Hash)
	if _, exists := s.entries[k]; !exists {
		return fmt.Errorf("transaction %s not found", entry.Hash)
	}
	s.entries[k] = entry
	return s.saveLocked()
}

// List returns all entries, newest first
func (s *Storage) List() []*Entry {
	return s.filter(func(*Entry) bool { return true })
}

// ListByStatus returns entries with status, newest first
func (s *Storage) ListByStatus(status Status) []*Entry {
	return s.filter(func(e *Entry) bool { return e.Status == status })
}

func (s *Storage) filter(keep func(*Entry) bool) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if keep(entry) {
			cp := *entry
			entries = append(entries, &cp)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Added.After(entries[j].Added)
	})
	return entries
}

// Count returns the number of entries
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetFilePath returns the ledger file path
func (s *Storage) GetFilePath() string {
	return s.filePath
}
