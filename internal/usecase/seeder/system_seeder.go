package seeder

import (
	"context"
	"fmt"
	"strconv"

	"github.com/simaogato/assetflow-backend/internal/domain"
)

// DefaultSetting defines a setting that must exist before the first session
type DefaultSetting struct {
	Key   string
	Value string
}

// DefaultSettings are the simulation parameters every portfolio starts with
var DefaultSettings = []DefaultSetting{
	{Key: domain.SettingCurrentAge, Value: strconv.Itoa(domain.DefaultCurrentAge)},
	{Key: domain.SettingRetirementAge, Value: strconv.Itoa(domain.DefaultRetirementAge)},
}

// SystemSeeder handles seeding of required settings
type SystemSeeder struct {
	repo domain.SettingsRepository
}

// NewSystemSeeder creates a new SystemSeeder instance
func NewSystemSeeder(repo domain.SettingsRepository) *SystemSeeder {
	return &SystemSeeder{
		repo: repo,
	}
}

// Seed ensures all required settings exist in the database.
// Values the user already saved are never overwritten.
func (s *SystemSeeder) Seed(ctx context.Context) error {
	existing, err := s.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	missing := domain.Settings{}
	for _, def := range DefaultSettings {
		if _, ok := existing[def.Key]; !ok {
			missing[def.Key] = def.Value
		}
	}

	// Everything is already there
	if len(missing) == 0 {
		return nil
	}

	if err := s.repo.Set(ctx, missing); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}
