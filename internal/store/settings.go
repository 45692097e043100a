package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/gesturecast/internal/gesture"
)

// Setting keys.
const (
	KeyThresholds         = "thresholds"
	KeyRecognitionEnabled = "recognition_enabled"
)

// SettingsRepository reads and writes key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key, or ErrNotFound.
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
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	return err
}

// Thresholds returns the persisted recognizer tuning. Fields missing from the stored
// profile, or the whole profile when none was saved, come from defaults. A corrupt
// or invalid profile yields defaults along with the error.
func (r *SettingsRepository) Thresholds(defaults gesture.Thresholds) (gesture.Thresholds, error) {
	raw, err := r.Get(KeyThresholds)
	if errors.Is(err, ErrNotFound) {
		return defaults, nil
	}
	if err != nil {
		return defaults, err
	}

	t := defaults
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return defaults, fmt.Errorf("corrupt %s setting: %w", KeyThresholds, err)
	}
	if err := t.Validate(); err != nil {
		return defaults, fmt.Errorf("invalid %s setting: %w", KeyThresholds, err)
	}
	return t, nil
}

// SaveThresholds validates and persists the recognizer tuning.
func (r *SettingsRepository) SaveThresholds(t gesture.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return r.Set(KeyThresholds, string(data))
}

// RecognitionEnabled returns the persisted recognition toggle, defaulting to true.
func (r *SettingsRepository) RecognitionEnabled() (bool, error) {
	raw, err := r.Get(KeyRecognitionEnabled)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return strconv.ParseBool(raw)
}

// SetRecognitionEnabled persists the recognition toggle.
func (r *SettingsRepository) SetRecognitionEnabled(enabled bool) error {
	return r.Set(KeyRecognitionEnabled, strconv.FormatBool(enabled))
}
