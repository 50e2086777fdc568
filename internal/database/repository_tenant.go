package database

import (
	"database/sql"

	"github.com/factoryop/platform/internal/models"
)

// TenantRepository handles tenant data operations
type TenantRepository struct{}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository() *TenantRepository {
	return &TenantRepository{}
}

const tenantSelectColumns = `id, slug, name, timezone, created_at`

func scanTenantFields(scan func(dest ...interface{}) error) (models.Tenant, error) {
	var t models.Tenant
	err := scan(&t.ID, &t.Slug, &t.Name, &t.Timezone, &t.CreatedAt)
	return t, err
}

// GetBySlug returns a tenant by its external slug, or nil if none exists.
func (r *TenantRepository) GetBySlug(slug string) (*models.Tenant, error) {
	row := DB.QueryRow(`SELECT `+tenantSelectColumns+` FROM tenants WHERE slug = ?`, slug)
	t, err := scanTenantFields(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID returns a tenant by internal id, or nil if none exists.
func (r *TenantRepository) GetByID(id int64) (*models.Tenant, error) {
	row := DB.QueryRow(`SELECT `+tenantSelectColumns+` FROM tenants WHERE id = ?`, id)
	t, err := scanTenantFields(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new tenant and returns its assigned id.
func (r *TenantRepository) Create(t *models.Tenant) (int64, error) {
	res, err := DB.Exec(`INSERT INTO tenants (slug, name, timezone, created_at) VALUES (?, ?, ?, ?)`,
		t.Slug, t.Name, t.Timezone, t.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
