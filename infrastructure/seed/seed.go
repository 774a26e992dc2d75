// Package seed loads YAML schema templates from disk and registers them as
// system template domains that users can clone.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/internal/database"
	"github.com/inquira/kgraph/internal/log"
)

// templateFile is the on-disk YAML shape of one schema template.
type templateFile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	EntityTypes []struct {
		Name       string            `yaml:"name"`
		Attributes map[string]string `yaml:"attributes"`
		Color      string            `yaml:"color"`
		Icon       string            `yaml:"icon"`
	} `yaml:"entity_types"`
	RelationshipTypes []struct {
		Name   string `yaml:"name"`
		Source string `yaml:"source"`
		Target string `yaml:"target"`
	} `yaml:"relationship_types"`
}

// Seeder loads schema templates into the domain store on startup.
type Seeder struct {
	domains       schema.DomainStore
	entityTypes   schema.EntityTypeStore
	relationTypes schema.RelationshipTypeStore
	logger        *log.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(
	domains schema.DomainStore,
	entityTypes schema.EntityTypeStore,
	relationTypes schema.RelationshipTypeStore,
	logger *log.Logger,
) Seeder {
	if logger == nil {
		logger = log.Default()
	}
	return Seeder{
		domains:       domains,
		entityTypes:   entityTypes,
		relationTypes: relationTypes,
		logger:        logger.With("component", "seed"),
	}
}

// SeedDir loads every .yaml/.yml template under dir. A missing directory is
// not an error; templates whose domain name already exists are skipped so
// seeding is idempotent across restarts.
func (s Seeder) SeedDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.DebugContext(ctx, "template directory missing, skipping seed", "dir", dir)
			return nil
		}
		return fmt.Errorf("read template dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := s.seedFile(ctx, filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("seed template %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s Seeder) seedFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	var tpl templateFile
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	if strings.TrimSpace(tpl.Name) == "" {
		return errors.New("template has no name")
	}

	_, err = s.domains.FindOne(ctx, repository.WithName(tpl.Name))
	if err == nil {
		s.logger.DebugContext(ctx, "template already seeded", "name", tpl.Name)
		return nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("check existing template: %w", err)
	}

	domain, err := s.domains.Save(ctx, schema.NewDomain(tpl.Name, tpl.Description, schema.VisibilitySystemTemplate, ""))
	if err != nil {
		return fmt.Errorf("save template domain: %w", err)
	}

	// Entity type names map to IDs so relationship types can reference them.
	typeIDs := make(map[string]string, len(tpl.EntityTypes))
	for i, et := range tpl.EntityTypes {
		saved, err := s.entityTypes.Save(ctx, schema.NewEntityType(domain.ID(), et.Name, et.Attributes).
			WithDisplay(et.Color, et.Icon).
			WithPosition(i))
		if err != nil {
			return fmt.Errorf("save entity type %q: %w", et.Name, err)
		}
		typeIDs[strings.ToLower(et.Name)] = saved.ID()
	}

	for i, rt := range tpl.RelationshipTypes {
		sourceID, ok := typeIDs[strings.ToLower(rt.Source)]
		if !ok {
			return fmt.Errorf("relationship type %q references unknown source %q", rt.Name, rt.Source)
		}
		targetID, ok := typeIDs[strings.ToLower(rt.Target)]
		if !ok {
			return fmt.Errorf("relationship type %q references unknown target %q", rt.Name, rt.Target)
		}
		if _, err := s.relationTypes.Save(ctx, schema.NewRelationshipType(domain.ID(), rt.Name, sourceID, targetID).
			WithPosition(i)); err != nil {
			return fmt.Errorf("save relationship type %q: %w", rt.Name, err)
		}
	}

	s.logger.InfoContext(ctx, "seeded schema template",
		"name", tpl.Name,
		"entity_types", len(tpl.EntityTypes),
		"relationship_types", len(tpl.RelationshipTypes))
	return nil
}
