package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ayusman/handsoff/internal/proximity"
)

// ErrInvalidWeight is returned when a sensitivity weight is not a positive
// finite number.
var ErrInvalidWeight = errors.New("weight must be a positive number")

// RegionWeight is one stored sensitivity entry.
type RegionWeight struct {
	Region    string    `json:"region"`
	Weight    float64   `json:"weight"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SensitivityRepository provides CRUD operations for region weights.
type SensitivityRepository struct {
	db *sql.DB
}

// Sensitivity returns the sensitivity repository for this store.
func (s *Store) Sensitivity() *SensitivityRepository {
	return &SensitivityRepository{db: s.db}
}

// List returns every stored weight ordered by region.
func (r *SensitivityRepository) List() ([]*RegionWeight, error) {
	rows, err := r.db.Query(`SELECT region, weight, updated_at FROM sensitivity ORDER BY region`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RegionWeight
	for rows.Next() {
		w := &RegionWeight{}
		if err := rows.Scan(&w.Region, &w.Weight, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores the weight for a region key, replacing any previous one.
func (r *SensitivityRepository) Set(region string, weight float64) error {
	region = strings.TrimSpace(region)
	if region == "" {
		return fmt.Errorf("region is required")
	}
	if !(weight > 0) || math.IsInf(weight, 1) {
		return ErrInvalidWeight
	}

	_, err := r.db.Exec(
		`INSERT INTO sensitivity (region, weight, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(region) DO UPDATE SET weight = excluded.weight, updated_at = excluded.updated_at`,
		region, weight, time.Now(),
	)
	return err
}

// Delete removes the weight for a region key.
func (r *SensitivityRepository) Delete(region string) error {
	result, err := r.db.Exec(`DELETE FROM sensitivity WHERE region = ?`, region)
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

// Replace swaps the whole table for the given weights in one transaction.
func (r *SensitivityRepository) Replace(s proximity.Sensitivity) error {
	for region, w := range s {
		if strings.TrimSpace(region) == "" {
			return fmt.Errorf("region is required")
		}
		if !(w > 0) || math.IsInf(w, 1) {
			return fmt.Errorf("%s: %w", region, ErrInvalidWeight)
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sensitivity`); err != nil {
		return err
	}
	now := time.Now()
	for region, w := range s {
		if _, err := tx.Exec(
			`INSERT INTO sensitivity (region, weight, updated_at) VALUES (?, ?, ?)`,
			strings.TrimSpace(region), w, now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load returns the stored weights as a Sensitivity, or defaults when the
// table is empty.
func (r *SensitivityRepository) Load(defaults proximity.Sensitivity) (proximity.Sensitivity, error) {
	weights, err := r.List()
	if err != nil {
		return defaults, err
	}
	if len(weights) == 0 {
		return defaults.Clone(), nil
	}

	out := make(proximity.Sensitivity, len(weights))
	for _, w := range weights {
		out[w.Region] = w.Weight
	}
	return out, nil
}
