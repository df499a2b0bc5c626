package repository

import (
	"context"
	"fmt"

	"github.com/liliang-cn/gmassist/internal/config"
	"github.com/liliang-cn/gmassist/internal/domain"
)

// Open builds the script store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StoreConfig) (ScriptStore, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := NewDB(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewScriptRepository(db), nil
	case "mongo":
		ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		return NewMongoScriptStore(ctx, cfg.MongoURI, cfg.Database, cfg.Collection)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
}

// SeedSample inserts a sample script when the store is empty. It reports
// whether a script was inserted.
func SeedSample(ctx context.Context, store ScriptStore) (bool, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	sample := &domain.Script{
		Title:       "Sample Script",
		Description: "This is a sample script for testing purposes",
		Content:     "INT. SAMPLE SCENE - DAY\n\nCharacter walks into the room and looks around.\n\nCHARACTER\nHello, is anyone here?",
		SceneDescriptions: []string{
			"INT. SAMPLE SCENE - DAY",
			"Character walks into the room",
		},
	}
	if err := store.Create(ctx, sample); err != nil {
		return false, fmt.Errorf("seed sample script: %w", err)
	}
	return true, nil
}
