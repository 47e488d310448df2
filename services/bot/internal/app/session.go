package app

import (
	"fmt"
	"time"

	"diamondbot/pkg/domain"
	"diamondbot/pkg/store"
)

// SessionStore loads and saves per-user flow state. Load never fails with
// not-found; Save applies a partial merge with last-writer-wins semantics
// (a user's messages arrive one webhook at a time, so no locking).
type SessionStore struct {
	store store.Store
}

func NewSessionStore(s store.Store) *SessionStore {
	return &SessionStore{store: s}
}

// Load returns the stored session or an idle default.
func (s *SessionStore) Load(userID string) (domain.Session, error) {
	sess, ok, err := s.store.GetSession(userID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session %s: %w", userID, err)
	}
	if !ok {
		return domain.DefaultSession(userID), nil
	}
	return sess, nil
}

// Save merges the update into the stored session. Scalar fields apply
// field-level; the listing draft is replaced wholesale when present.
// An empty update writes nothing.
func (s *SessionStore) Save(userID string, update domain.SessionUpdate) (domain.Session, error) {
	current, err := s.Load(userID)
	if err != nil {
		return domain.Session{}, err
	}
	if update.IsZero() {
		return current, nil
	}
	merged := ApplyUpdate(current, update)
	merged.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertSession(merged); err != nil {
		return domain.Session{}, fmt.Errorf("save session %s: %w", userID, err)
	}
	return merged, nil
}

// ApplyUpdate merges a partial update into a session value.
func ApplyUpdate(sess domain.Session, update domain.SessionUpdate) domain.Session {
	if update.Step != nil {
		sess.Step = *update.Step
	}
	if update.ClearListing {
		sess.Listing = nil
	} else if update.Listing != nil {
		draft := *update.Listing
		sess.Listing = &draft
	}
	if update.LastDiamondID != nil {
		sess.LastDiamondID = *update.LastDiamondID
	}
	if update.LastDesignID != nil {
		sess.LastDesignID = *update.LastDesignID
	}
	return sess
}

func stepPtr(s domain.SessionStep) *domain.SessionStep { return &s }
func strPtr(s string) *string                          { return &s }
