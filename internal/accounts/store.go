// Package accounts is the site-local account store fed by verification
// verdicts. Records are keyed on the identifier's canonical decimal
// value; creation is at-most-once per identifier, which is the only
// synchronization the verification core requires of its surroundings.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"zkgate/go-backend/pkg/models"
)

// ErrAlreadyRegistered is returned when an account exists for the
// identifier. The losing side of a concurrent registration race sees
// this, never a duplicate record.
var ErrAlreadyRegistered = errors.New("identifier already registered")

// ErrInvalidAccount marks a missing identifier or display name.
var ErrInvalidAccount = errors.New("invalid account input")

// Store is an in-memory account map with optional JSON file persistence.
// Snapshots are written before the in-memory state is swapped, so a
// failed write never leaves the store ahead of its file.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	path     string
}

// NewStore builds a volatile store.
func NewStore() *Store {
	return &Store{accounts: make(map[string]models.Account)}
}

// NewPersistentStore builds a store backed by a JSON file, loading any
// existing snapshot.
func NewPersistentStore(path string) (*Store, error) {
	s := &Store{accounts: make(map[string]models.Account), path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// FindByIdentifier looks up an account by canonical decimal identifier.
func (s *Store) FindByIdentifier(id string) (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[strings.TrimSpace(id)]
	return acct, ok
}

// AddAccount creates the account record for an identifier. Exactly one
// concurrent caller per identifier succeeds.
func (s *Store) AddAccount(id, displayName string) (models.Account, error) {
	id = strings.TrimSpace(id)
	displayName = strings.TrimSpace(displayName)
	if id == "" || displayName == "" {
		return models.Account{}, fmt.Errorf("%w: identifier and display name are required", ErrInvalidAccount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; ok {
		return models.Account{}, ErrAlreadyRegistered
	}

	acct := models.Account{
		Identifier:  id,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	next := make(map[string]models.Account, len(s.accounts)+1)
	for k, v := range s.accounts {
		next[k] = v
	}
	next[id] = acct
	if err := s.persistLocked(next); err != nil {
		return models.Account{}, err
	}
	s.accounts = next
	return acct, nil
}

// List returns all accounts ordered by identifier.
func (s *Store) List() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

type snapshot struct {
	Accounts map[string]models.Account `json:"accounts"`
}

func (s *Store) persistLocked(accounts map[string]models.Account) error {
	if s.path == "" {
		return nil
	}
	payload, err := json.Marshal(snapshot{Accounts: accounts})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) load() error {
	if s.path == "" {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode account snapshot: %w", err)
	}
	if snap.Accounts != nil {
		s.accounts = snap.Accounts
	}
	return nil
}
