package repository

import (
	"context"

	"github.com/liliang-cn/gmassist/internal/domain"
)

// ScriptStore is the document store the chat flow and admin API read from.
// Get returns (nil, nil) when the script does not exist.
type ScriptStore interface {
	Create(ctx context.Context, script *domain.Script) error
	Get(ctx context.Context, id string) (*domain.Script, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Script, error)
	Update(ctx context.Context, script *domain.Script) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// SearchScripts returns up to limit scripts whose title, content or scene
	// descriptions contain any keyword (case-insensitive), oldest first.
	SearchScripts(ctx context.Context, keywords []string, limit int) ([]*domain.Script, error)

	Ping(ctx context.Context) error
	Database() string
	Close() error
}
