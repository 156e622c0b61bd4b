package app

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/godilite/booth-feedback/internal/repository/models"
)

type memberStore interface {
	UpsertMember(ctx context.Context, m models.Member) error
}

type memberFile struct {
	Members []models.Member `yaml:"members"`
}

// LoadMembers reads the team roster from a YAML file of the form
//
//	members:
//	  - email: ann@example.com
//	    name: Ann
//	    booth_id: a-01
//	    team_name: Alpha
func LoadMembers(path string) ([]models.Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read members file: %w", err)
	}
	var f memberFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode members file %s: %w", path, err)
	}
	for i, m := range f.Members {
		if m.Email == "" || m.BoothID == "" {
			return nil, fmt.Errorf("members file %s: entry %d needs email and booth_id", path, i)
		}
	}
	return f.Members, nil
}

// SeedMembers upserts the roster so member lookups resolve.
func SeedMembers(ctx context.Context, store memberStore, members []models.Member) error {
	for _, m := range members {
		if err := store.UpsertMember(ctx, m); err != nil {
			return fmt.Errorf("seed member %s: %w", m.Email, err)
		}
	}
	return nil
}
