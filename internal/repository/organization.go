package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/plixa/plixa/internal/model"
)

// Common errors for organization repository operations.
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrOrganizationExists   = errors.New("organization name already taken")
)

// CreateOrganization inserts a new organization.
func (r *Repository) CreateOrganization(ctx context.Context, org *model.Organization) error {
	query := `
		INSERT INTO organizations (id, name, members, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`

	_, err := r.pool.Exec(ctx, query, org.ID, org.Name, pq.Array(org.Members), org.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrOrganizationExists
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// GetOrganizationByID retrieves an organization by ID.
func (r *Repository) GetOrganizationByID(ctx context.Context, id string) (*model.Organization, error) {
	query := `
		SELECT id, name, members, created_at
		FROM organizations
		WHERE id = $1
	`

	org, err := scanOrganization(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// ListOrganizations returns all organizations, newest first.
func (r *Repository) ListOrganizations(ctx context.Context) ([]*model.Organization, error) {
	query := `
		SELECT id, name, members, created_at
		FROM organizations
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*model.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	return orgs, rows.Err()
}

// ListOrganizationsForUser returns the organizations a user belongs to.
func (r *Repository) ListOrganizationsForUser(ctx context.Context, userID string) ([]*model.Organization, error) {
	query := `
		SELECT id, name, members, created_at
		FROM organizations
		WHERE $1 = ANY(members)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*model.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	return orgs, rows.Err()
}

// UpdateOrganization applies a partial update.
func (r *Repository) UpdateOrganization(ctx context.Context, id string, req *model.UpdateOrganizationRequest) error {
	query := `
		UPDATE organizations
		SET name = COALESCE($2, name), updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, req.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrOrganizationExists
		}
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrganizationNotFound
	}

	return nil
}

// SetOrganizationMembers replaces the member list.
func (r *Repository) SetOrganizationMembers(ctx context.Context, id string, members []string) error {
	query := `UPDATE organizations SET members = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, pq.Array(members))
	if err != nil {
		return fmt.Errorf("failed to update members: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrganizationNotFound
	}

	return nil
}

// DeleteOrganization removes an organization and, via cascade, its
// clusters, transactions and withdrawals.
func (r *Repository) DeleteOrganization(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrganizationNotFound
	}

	return nil
}

func scanOrganization(row pgx.Row) (*model.Organization, error) {
	var org model.Organization
	var members []string
	err := row.Scan(&org.ID, &org.Name, pq.Array(&members), &org.CreatedAt)
	if err != nil {
		return nil, err
	}
	org.Members = members
	return &org, nil
}
