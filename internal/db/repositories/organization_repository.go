// organization_repository.go implements OrganizationRepository, providing database queries
// for organizations and membership management.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/object-registry/object-registry/internal/db/models"
)

// OrganizationRepository handles database operations for organizations
type OrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// GetByName retrieves an organization by its name
func (r *OrganizationRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	query := `
		SELECT id, name, display_name, created_at, updated_at
		FROM organizations
		WHERE name = $1
	`
	return r.getOrganization(ctx, query, name)
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	query := `
		SELECT id, name, display_name, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	return r.getOrganization(ctx, query, id)
}

func (r *OrganizationRepository) getOrganization(ctx context.Context, query string, arg interface{}) (*models.Organization, error) {
	org := &models.Organization{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&org.ID,
		&org.Name,
		&org.DisplayName,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// CreateOrganization creates a new organization and sets its generated ID
func (r *OrganizationRepository) CreateOrganization(ctx context.Context, org *models.Organization) error {
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt

	query := `
		INSERT INTO organizations (name, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, org.Name, org.DisplayName, org.CreatedAt, org.UpdatedAt).Scan(&org.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// === Organization Membership Operations ===

// AddMemberWithParams adds a user to an organization with the role template of the given name.
// An existing membership has its role replaced.
func (r *OrganizationRepository) AddMemberWithParams(ctx context.Context, orgID, userID int64, roleTemplateName string) error {
	var roleTemplateID *int64
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM role_templates WHERE name = $1`, roleTemplateName).Scan(&id)
	if err == nil {
		roleTemplateID = &id
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("failed to look up role template: %w", err)
	}

	query := `
		INSERT INTO organization_members (organization_id, user_id, role_template_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (organization_id, user_id) DO UPDATE SET role_template_id = EXCLUDED.role_template_id
	`

	if _, err := r.db.ExecContext(ctx, query, orgID, userID, roleTemplateID); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// GetUserOrganizations retrieves all organizations a user belongs to, ordered by name
func (r *OrganizationRepository) GetUserOrganizations(ctx context.Context, userID int64) ([]*models.Organization, error) {
	query := `
		SELECT o.id, o.name, o.display_name, o.created_at, o.updated_at
		FROM organizations o
		INNER JOIN organization_members om ON o.id = om.organization_id
		WHERE om.user_id = $1
		ORDER BY o.name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user organizations: %w", err)
	}
	defer rows.Close()

	organizations := make([]*models.Organization, 0)
	for rows.Next() {
		org := &models.Organization{}
		err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.DisplayName,
			&org.CreatedAt,
			&org.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		organizations = append(organizations, org)
	}

	return organizations, rows.Err()
}
