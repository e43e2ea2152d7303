package store

import (
	"context"
	"encoding/json"
	"fmt"
)

const settingsFile = "settings.json"

func (s *Store) GetSettings(ctx context.Context) (AppSettings, error) {
	data, err := s.ReadFile(settingsFile)
	if err != nil {
		return AppSettings{}, err
	}
	settings := DefaultSettings()
	if len(data) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return AppSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, fn func(*AppSettings) error) (AppSettings, error) {
	var updated AppSettings
	err := s.Locked(settingsFile, func() error {
		settings, err := s.GetSettings(ctx)
		if err != nil {
			return err
		}
		if err := fn(&settings); err != nil {
			return err
		}
		payload, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		if err := s.WriteFile(settingsFile, append(payload, '\n')); err != nil {
			return err
		}
		updated = settings
		return nil
	})
	return updated, err
}
