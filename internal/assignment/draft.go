package assignment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/me/sweeply/internal/secrets"
	"github.com/me/sweeply/pkg/model"
)

// DraftStore persists the last server-acknowledged timer snapshot so an
// in-progress assignment survives app restarts. One draft at a time: a
// user works one timer at a time, and the draft is cleared when its
// report is accepted.
type DraftStore struct {
	store secrets.Store
}

// NewDraftStore wraps a secret store.
func NewDraftStore(store secrets.Store) *DraftStore {
	return &DraftStore{store: store}
}

// Save replaces the stored draft.
func (d *DraftStore) Save(ctx context.Context, snap model.TimerSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return d.store.Set(ctx, secrets.KeyAssignmentDraft, string(data))
}

// Load returns the stored draft, or nil when absent.
func (d *DraftStore) Load(ctx context.Context) (*model.TimerSnapshot, error) {
	raw, err := d.store.Get(ctx, secrets.KeyAssignmentDraft)
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var snap model.TimerSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("parse draft: %w", err)
	}
	return &snap, nil
}

// LoadFor returns the stored draft only if it belongs to the given
// assignment; a draft for a different assignment is no recovery hint.
func (d *DraftStore) LoadFor(ctx context.Context, assignmentID string) (*model.TimerSnapshot, error) {
	snap, err := d.Load(ctx)
	if err != nil || snap == nil {
		return nil, err
	}
	if snap.AssignmentID != assignmentID {
		return nil, nil
	}
	return snap, nil
}

// Clear removes the stored draft.
func (d *DraftStore) Clear(ctx context.Context) error {
	return d.store.Delete(ctx, secrets.KeyAssignmentDraft)
}
