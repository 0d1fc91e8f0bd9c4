package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ayusman/handsoff/internal/proximity"
)

// Setting keys.
const (
	KeyWarningThreshold  = "warning_threshold_px"
	KeyCriticalThreshold = "critical_threshold_px"
	KeyMinDuration       = "min_duration_ms"
	KeyMaxDuration       = "max_duration_ms"
	KeyAlertCooldown     = "alert_cooldown_ms"
	KeyMuted             = "muted"
)

// SettingsRepository reads and writes key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// All returns every stored setting.
func (r *SettingsRepository) All() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadThresholds overlays stored threshold settings on defaults. Missing or
// unparseable values keep the default. The result is clamped.
func (r *SettingsRepository) LoadThresholds(defaults proximity.Thresholds) (proximity.Thresholds, error) {
	all, err := r.All()
	if err != nil {
		return defaults, err
	}

	t := defaults
	if v, ok := parseFloat(all, KeyWarningThreshold); ok {
		t.Warning = v
	}
	if v, ok := parseFloat(all, KeyCriticalThreshold); ok {
		t.Critical = v
	}
	if v, ok := parseMillis(all, KeyMinDuration); ok {
		t.MinDuration = v
	}
	if v, ok := parseMillis(all, KeyMaxDuration); ok {
		t.MaxDuration = v
	}
	if v, ok := parseMillis(all, KeyAlertCooldown); ok {
		t.Cooldown = v
	}
	return t.Clamp(), nil
}

// SaveThresholds persists every threshold field in one transaction.
func (r *SettingsRepository) SaveThresholds(t proximity.Thresholds) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	values := map[string]string{
		KeyWarningThreshold:  strconv.FormatFloat(t.Warning, 'f', -1, 64),
		KeyCriticalThreshold: strconv.FormatFloat(t.Critical, 'f', -1, 64),
		KeyMinDuration:       strconv.FormatInt(t.MinDuration.Milliseconds(), 10),
		KeyMaxDuration:       strconv.FormatInt(t.MaxDuration.Milliseconds(), 10),
		KeyAlertCooldown:     strconv.FormatInt(t.Cooldown.Milliseconds(), 10),
	}
	for k, v := range values {
		if _, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			k, v,
		); err != nil {
			return fmt.Errorf("failed to save %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Muted returns the persisted mute flag, false when unset.
func (r *SettingsRepository) Muted() (bool, error) {
	v, err := r.Get(KeyMuted)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	muted, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return muted, nil
}

// SetMuted persists the mute flag.
func (r *SettingsRepository) SetMuted(muted bool) error {
	return r.Set(KeyMuted, strconv.FormatBool(muted))
}

func parseFloat(all map[string]string, key string) (float64, bool) {
	s, ok := all[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseMillis(all map[string]string, key string) (time.Duration, bool) {
	s, ok := all[key]
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return proximity.Millis(ms), true
}
