// internal/profiles/profiles.go
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mcp-glucose-log/internal/models"
	"mcp-glucose-log/internal/storage"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoCurrent       = errors.New("no current profile")
)

// Profiles keeps the saved profiles and the id of the current one. Both are
// rewritten in full on every change.
type Profiles struct {
	mu        sync.RWMutex
	store     storage.Store
	saved     []models.UserProfile
	currentID string
}

func Open(ctx context.Context, store storage.Store) (*Profiles, error) {
	p := &Profiles{store: store}

	if _, err := storage.LoadJSON(ctx, store, storage.KeyProfiles, &p.saved); err != nil {
		if !isCorrupt(err) {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		log.Warn().Err(err).Msg("stored profiles are corrupt, starting empty")
		p.saved = nil
	}

	var current models.UserProfile
	found, err := storage.LoadJSON(ctx, store, storage.KeyCurrentProfile, &current)
	if err != nil {
		if !isCorrupt(err) {
			return nil, fmt.Errorf("failed to load current profile: %w", err)
		}
		log.Warn().Err(err).Msg("stored current profile is corrupt, ignoring it")
	} else if found {
		// The current profile blob wins over a stale copy in the list.
		if i := p.indexOf(current.ID); i >= 0 {
			p.saved[i] = current
		} else {
			p.saved = append(p.saved, current)
		}
		p.currentID = current.ID
	}

	return p, nil
}

func isCorrupt(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func (p *Profiles) indexOf(id string) int {
	for i := range p.saved {
		if p.saved[i].ID == id {
			return i
		}
	}
	return -1
}

// save writes saved and currentID in one batch, then swaps them in. Caller
// holds the write lock.
func (p *Profiles) save(ctx context.Context, saved []models.UserProfile, currentID string) error {
	listOp, err := storage.JSONOp(storage.KeyProfiles, saved)
	if err != nil {
		return err
	}
	currentOp := storage.DeleteOp(storage.KeyCurrentProfile)
	if currentID != "" {
		for _, prof := range saved {
			if prof.ID == currentID {
				if currentOp, err = storage.JSONOp(storage.KeyCurrentProfile, prof); err != nil {
					return err
				}
				break
			}
		}
	}
	if err := p.store.Apply(ctx, listOp, currentOp); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}
	p.saved = saved
	p.currentID = currentID
	return nil
}

func (p *Profiles) Current() (models.UserProfile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i := p.indexOf(p.currentID); p.currentID != "" && i >= 0 {
		return p.saved[i], nil
	}
	return models.UserProfile{}, ErrNoCurrent
}

func (p *Profiles) Get(id string) (models.UserProfile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i := p.indexOf(id); i >= 0 {
		return p.saved[i], nil
	}
	return models.UserProfile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

func (p *Profiles) List() []models.UserProfile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.UserProfile, len(p.saved))
	copy(out, p.saved)
	return out
}

// Add stores a new profile. The first profile becomes current.
func (p *Profiles) Add(ctx context.Context, prof models.UserProfile) (models.UserProfile, error) {
	if prof.ID == "" {
		prof.ID = uuid.New().String()
	}
	if err := prof.Validate(); err != nil {
		return models.UserProfile{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOf(prof.ID) >= 0 {
		return models.UserProfile{}, fmt.Errorf("%w: duplicate id %s", models.ErrInvalidProfile, prof.ID)
	}

	next := append(append([]models.UserProfile(nil), p.saved...), prof)
	currentID := p.currentID
	if currentID == "" {
		currentID = prof.ID
	}
	if err := p.save(ctx, next, currentID); err != nil {
		return models.UserProfile{}, err
	}
	log.Info().Str("id", prof.ID).Str("name", prof.Name).Msg("profile added")
	return prof, nil
}

// UpdateCurrent replaces the current profile, keeping its id.
func (p *Profiles) UpdateCurrent(ctx context.Context, prof models.UserProfile) (models.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(p.currentID)
	if p.currentID == "" || i < 0 {
		return models.UserProfile{}, ErrNoCurrent
	}
	prof.ID = p.currentID
	if err := prof.Validate(); err != nil {
		return models.UserProfile{}, err
	}

	next := append([]models.UserProfile(nil), p.saved...)
	next[i] = prof
	if err := p.save(ctx, next, p.currentID); err != nil {
		return models.UserProfile{}, err
	}
	return prof, nil
}

func (p *Profiles) SetCurrent(ctx context.Context, id string) (models.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(id)
	if i < 0 {
		return models.UserProfile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if err := p.save(ctx, p.saved, id); err != nil {
		return models.UserProfile{}, err
	}
	return p.saved[i], nil
}

// Delete removes a saved profile and clears the current selection if it
// pointed at it.
func (p *Profiles) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	next := make([]models.UserProfile, 0, len(p.saved)-1)
	next = append(next, p.saved[:i]...)
	next = append(next, p.saved[i+1:]...)
	currentID := p.currentID
	if currentID == id {
		currentID = ""
	}
	return p.save(ctx, next, currentID)
}

// Reset forgets every profile.
func (p *Profiles) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Apply(ctx, storage.DeleteOp(storage.KeyProfiles), storage.DeleteOp(storage.KeyCurrentProfile)); err != nil {
		return fmt.Errorf("failed to reset profiles: %w", err)
	}
	p.saved = nil
	p.currentID = ""
	log.Info().Msg("profiles reset")
	return nil
}
