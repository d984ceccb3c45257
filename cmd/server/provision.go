package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/object-registry/object-registry/internal/auth"
	"github.com/object-registry/object-registry/internal/db/models"
	"github.com/object-registry/object-registry/internal/db/repositories"
	"github.com/object-registry/object-registry/pkg/jsonfmt"
	"github.com/xeipuuv/gojsonschema"
)

// provisioner seeds users, memberships and schemas from the command line.
// There is no administration UI for these records.
type provisioner struct {
	users   *repositories.UserRepository
	orgs    *repositories.OrganizationRepository
	schemas *repositories.SchemaRepository
}

func newProvisioner(db *sql.DB) *provisioner {
	return &provisioner{
		users:   repositories.NewUserRepository(db),
		orgs:    repositories.NewOrganizationRepository(db),
		schemas: repositories.NewSchemaRepository(sqlx.NewDb(db, "postgres")),
	}
}

// AddUser creates the user and organization when missing, sets the password and
// grants role in the organization.
func (p *provisioner) AddUser(ctx context.Context, email, password, orgName, role string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}
	if _, ok := models.FindPredefinedRoleTemplate(role); !ok {
		return fmt.Errorf("unknown role %q (must be one of %s)", role, strings.Join(roleNames(), ", "))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	org, err := p.ensureOrganization(ctx, orgName)
	if err != nil {
		return err
	}

	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		user = &models.User{
			Email:        email,
			Name:         email[:strings.Index(email, "@")],
			PasswordHash: &hash,
		}
		if err := p.users.CreateUser(ctx, user); err != nil {
			return err
		}
		slog.Info("created user", "user_id", user.ID, "email", email)
	} else if err := p.users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	if err := p.orgs.AddMemberWithParams(ctx, org.ID, user.ID, role); err != nil {
		return err
	}
	slog.Info("granted role", "user_id", user.ID, "organization", org.Name, "role", role)
	return nil
}

// roleNames lists the system role templates seeded by the migrations
func roleNames() []string {
	templates := models.PredefinedRoleTemplates()
	names := make([]string, 0, len(templates))
	for _, rt := range templates {
		names = append(names, rt.Name)
	}
	return names
}

func (p *provisioner) ensureOrganization(ctx context.Context, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("organization name is required")
	}

	org, err := p.orgs.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if org != nil {
		return org, nil
	}

	org = &models.Organization{Name: name, DisplayName: name}
	if err := p.orgs.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}
	slog.Info("created organization", "organization_id", org.ID, "name", name)
	return org, nil
}

// ImportSchema registers the JSON Schema document at path under name.
// When orgName is set the schema is owned by that organization.
func (p *provisioner) ImportSchema(ctx context.Context, name, path, orgName string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("schema name is required")
	}

	definition, err := loadSchemaFile(path)
	if err != nil {
		return err
	}

	schema := &models.Schema{Name: name, Definition: definition}
	if orgName != "" {
		org, err := p.orgs.GetByName(ctx, orgName)
		if err != nil {
			return err
		}
		if org == nil {
			return fmt.Errorf("organization %q not found", orgName)
		}
		schema.OrganizationID = &org.ID
	}

	if err := p.schemas.Create(ctx, schema); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return fmt.Errorf("schema %q already exists: %w", name, err)
		}
		return err
	}
	slog.Info("imported schema", "schema_id", schema.ID, "name", name)
	return nil
}

// loadSchemaFile reads a JSON Schema document and checks that it compiles
func loadSchemaFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	compact, err := jsonfmt.Compact(data)
	if err != nil {
		return nil, fmt.Errorf("schema file is not valid JSON: %w", err)
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(compact)); err != nil {
		return nil, fmt.Errorf("schema file is not a valid JSON Schema: %w", err)
	}
	return compact, nil
}
