package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/gmassist/internal/domain"
)

// ScriptRepository handles script persistence in SQLite
type ScriptRepository struct {
	db *DB
}

// NewScriptRepository creates a new script repository
func NewScriptRepository(db *DB) *ScriptRepository {
	return &ScriptRepository{db: db}
}

const scriptColumns = `id, title, description, content, scene_descriptions, created_at, updated_at`

// Create creates a new script
func (r *ScriptRepository) Create(ctx context.Context, script *domain.Script) error {
	if script.ID == "" {
		script.ID = uuid.New().String()
	}
	now := time.Now()
	script.CreatedAt = now
	script.UpdatedAt = now

	scenesJSON, _ := json.Marshal(script.SceneDescriptions)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scripts (`+scriptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, script.ID, script.Title, script.Description, script.Content,
		string(scenesJSON), script.CreatedAt, script.UpdatedAt)

	return err
}

// Get retrieves a script by ID
func (r *ScriptRepository) Get(ctx context.Context, id string) (*domain.Script, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scriptColumns+` FROM scripts WHERE id = ?`, id)
	script, err := scanScript(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return script, nil
}

// List retrieves scripts in insertion order
func (r *ScriptRepository) List(ctx context.Context, offset, limit int) ([]*domain.Script, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scriptColumns+`
		FROM scripts ORDER BY rowid ASC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScripts(rows)
}

// Update updates a script
func (r *ScriptRepository) Update(ctx context.Context, script *domain.Script) error {
	script.UpdatedAt = time.Now()
	scenesJSON, _ := json.Marshal(script.SceneDescriptions)

	result, err := r.db.ExecContext(ctx, `
		UPDATE scripts SET title = ?, description = ?, content = ?, scene_descriptions = ?, updated_at = ?
		WHERE id = ?
	`, script.Title, script.Description, script.Content, string(scenesJSON),
		script.UpdatedAt, script.ID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("script %s: %w", script.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a script
func (r *ScriptRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("script %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Count returns the number of stored scripts
func (r *ScriptRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scripts`).Scan(&count)
	return count, err
}

// SearchScripts matches any keyword against title, content and scene descriptions
func (r *ScriptRepository) SearchScripts(ctx context.Context, keywords []string, limit int) ([]*domain.Script, error) {
	if len(keywords) == 0 || limit <= 0 {
		return nil, nil
	}

	conds := make([]string, 0, len(keywords))
	args := make([]any, 0, len(keywords)*3+1)
	for _, kw := range keywords {
		pattern := "%" + escapeLike(strings.ToLower(kw)) + "%"
		conds = append(conds, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\' OR LOWER(scene_descriptions) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scriptColumns+`
		FROM scripts WHERE `+strings.Join(conds, " OR ")+`
		ORDER BY rowid ASC LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("search scripts: %w", err)
	}
	defer rows.Close()

	return scanScripts(rows)
}

// Ping checks the database connection
func (r *ScriptRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Database returns the database file name
func (r *ScriptRepository) Database() string {
	return filepath.Base(r.db.path)
}

// Close closes the underlying database
func (r *ScriptRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScript(row rowScanner) (*domain.Script, error) {
	script := &domain.Script{}
	var description, scenesJSON sql.NullString

	if err := row.Scan(&script.ID, &script.Title, &description, &script.Content,
		&scenesJSON, &script.CreatedAt, &script.UpdatedAt); err != nil {
		return nil, err
	}

	script.Description = description.String
	if scenesJSON.Valid && scenesJSON.String != "" {
		if err := json.Unmarshal([]byte(scenesJSON.String), &script.SceneDescriptions); err != nil {
			return nil, fmt.Errorf("decode scene descriptions of script %s: %w", script.ID, err)
		}
	}
	return script, nil
}

func scanScripts(rows *sql.Rows) ([]*domain.Script, error) {
	var scripts []*domain.Script
	for rows.Next() {
		script, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, script)
	}
	return scripts, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ ScriptStore = (*ScriptRepository)(nil)
