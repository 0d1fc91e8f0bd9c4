package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/handsoff/internal/proximity"
)

// ErrInvalidLevel is returned for a notifier level other than warning or
// critical.
var ErrInvalidLevel = errors.New("level must be warning or critical")

// Notifier binds an alert level to a plugin action.
type Notifier struct {
	ID         string          `json:"id"`
	Level      proximity.Level `json:"level"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config,omitempty"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NotifierRepository provides CRUD operations for notifiers.
type NotifierRepository struct {
	db *sql.DB
}

// Notifiers returns the notifier repository for this store.
func (s *Store) Notifiers() *NotifierRepository {
	return &NotifierRepository{db: s.db}
}

func levelColumn(l proximity.Level) (string, error) {
	switch l {
	case proximity.Warning, proximity.Critical:
		return strings.ToLower(l.String()), nil
	default:
		return "", ErrInvalidLevel
	}
}

const notifierColumns = `id, level, plugin_name, action_name, config, enabled, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotifier(row rowScanner) (*Notifier, error) {
	n := &Notifier{}
	var level, config string
	var enabled int

	if err := row.Scan(&n.ID, &level, &n.PluginName, &n.ActionName, &config, &enabled, &n.CreatedAt); err != nil {
		return nil, err
	}

	n.Level = proximity.ParseLevel(level)
	n.Config = json.RawMessage(config)
	n.Enabled = enabled != 0
	return n, nil
}

// Create inserts a new notifier. An empty ID is replaced by a fresh UUID.
func (r *NotifierRepository) Create(n *Notifier) error {
	level, err := levelColumn(n.Level)
	if err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()

	config := n.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	_, err = r.db.Exec(
		`INSERT INTO notifiers (`+notifierColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, level, n.PluginName, n.ActionName, string(config), n.Enabled, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}
	return nil
}

// GetByID retrieves a notifier by its ID.
func (r *NotifierRepository) GetByID(id string) (*Notifier, error) {
	n, err := scanNotifier(r.db.QueryRow(
		`SELECT `+notifierColumns+` FROM notifiers WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

// List retrieves all notifiers, newest first.
func (r *NotifierRepository) List() ([]*Notifier, error) {
	return r.query(`SELECT ` + notifierColumns + ` FROM notifiers ORDER BY created_at DESC, rowid DESC`)
}

// ListEnabledForLevel retrieves the enabled notifiers bound to a level,
// oldest first so actions run in the order they were configured.
func (r *NotifierRepository) ListEnabledForLevel(l proximity.Level) ([]*Notifier, error) {
	level, err := levelColumn(l)
	if err != nil {
		return nil, nil
	}
	return r.query(
		`SELECT `+notifierColumns+` FROM notifiers
		 WHERE level = ? AND enabled = 1 ORDER BY created_at ASC, rowid ASC`,
		level,
	)
}

func (r *NotifierRepository) query(q string, args ...any) ([]*Notifier, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notifier
	for rows.Next() {
		n, err := scanNotifier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update updates an existing notifier.
func (r *NotifierRepository) Update(n *Notifier) error {
	level, err := levelColumn(n.Level)
	if err != nil {
		return err
	}

	config := n.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	enabled := 0
	if n.Enabled {
		enabled = 1
	}

	result, err := r.db.Exec(
		`UPDATE notifiers SET level = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		level, n.PluginName, n.ActionName, string(config), enabled, n.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a notifier by its ID.
func (r *NotifierRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM notifiers WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
