package settings

import (
	"context"

	"carbon-scribe/project-portal/ledger-backend/internal/ledger"
	"carbon-scribe/project-portal/ledger-backend/pkg/kv"
)

const preferencesKeyPrefix = "app_preferences:"

type Repository interface {
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)
	SavePreferences(ctx context.Context, prefs *Preferences) error
}

// RepositoryImpl keeps preferences as one kv entry per user
type RepositoryImpl struct {
	store kv.Store
}

// NewRepository creates a new settings repository
func NewRepository(store kv.Store) *RepositoryImpl {
	return &RepositoryImpl{store: store}
}

// GetPreferences returns nil when the user has none stored, or the stored
// value is unreadable.
func (r *RepositoryImpl) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	var prefs Preferences
	ok, err := ledger.GetAux(ctx, r.store, preferencesKeyPrefix+userID, &prefs)
	if err != nil || !ok {
		return nil, err
	}
	return &prefs, nil
}

func (r *RepositoryImpl) SavePreferences(ctx context.Context, prefs *Preferences) error {
	return ledger.SetAux(ctx, r.store, preferencesKeyPrefix+prefs.UserID, prefs)
}
