package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/plixa/plixa/internal/model"
)

// Common errors for cluster repository operations.
var (
	ErrClusterNotFound   = errors.New("cluster not found")
	ErrClusterNameExists = errors.New("cluster name already used in organization")
)

// CreateCluster inserts a new cluster.
func (r *Repository) CreateCluster(ctx context.Context, cluster *model.Cluster) error {
	query := `
		INSERT INTO clusters (id, organization_id, name, description, amount, acceptable_payment, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		cluster.ID,
		cluster.OrganizationID,
		cluster.Name,
		cluster.Description,
		cluster.Amount,
		cluster.MinAcceptablePayment,
		cluster.Status,
		cluster.ExpiresAt,
		cluster.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrClusterNameExists
		}
		return fmt.Errorf("failed to create cluster: %w", err)
	}

	return nil
}

// GetClusterByID retrieves a cluster by ID.
func (r *Repository) GetClusterByID(ctx context.Context, id string) (*model.Cluster, error) {
	query := `
		SELECT id, organization_id, name, description, amount, acceptable_payment, status, expires_at, created_at
		FROM clusters
		WHERE id = $1
	`

	cluster, err := scanCluster(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClusterNotFound
		}
		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}

	return cluster, nil
}

// ListClusters returns an organization's clusters, newest first.
func (r *Repository) ListClusters(ctx context.Context, organizationID string) ([]*model.Cluster, error) {
	query := `
		SELECT id, organization_id, name, description, amount, acceptable_payment, status, expires_at, created_at
		FROM clusters
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	defer rows.Close()

	var clusters []*model.Cluster
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		clusters = append(clusters, cluster)
	}

	return clusters, rows.Err()
}

// UpdateCluster applies a partial update to a cluster's editable fields.
func (r *Repository) UpdateCluster(ctx context.Context, id string, req *model.UpdateClusterRequest) error {
	query := `
		UPDATE clusters
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    amount = COALESCE($4, amount),
		    acceptable_payment = COALESCE($5, acceptable_payment),
		    expires_at = COALESCE($6, expires_at),
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id,
		req.Name,
		req.Description,
		req.Amount,
		req.MinAcceptablePayment,
		req.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrClusterNameExists
		}
		return fmt.Errorf("failed to update cluster: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClusterNotFound
	}

	return nil
}

// SetClusterStatus moves a cluster through its lifecycle.
func (r *Repository) SetClusterStatus(ctx context.Context, id string, status model.ClusterStatus) error {
	query := `UPDATE clusters SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update cluster status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClusterNotFound
	}

	return nil
}

// DeleteCluster removes a cluster and its transactions.
func (r *Repository) DeleteCluster(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clusters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cluster: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClusterNotFound
	}

	return nil
}

func scanCluster(row pgx.Row) (*model.Cluster, error) {
	var cluster model.Cluster
	err := row.Scan(
		&cluster.ID,
		&cluster.OrganizationID,
		&cluster.Name,
		&cluster.Description,
		&cluster.Amount,
		&cluster.MinAcceptablePayment,
		&cluster.Status,
		&cluster.ExpiresAt,
		&cluster.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cluster, nil
}
