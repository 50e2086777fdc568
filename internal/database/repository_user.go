package database

import (
	"database/sql"
	"encoding/json"

	"github.com/factoryop/platform/internal/models"
)

// UserRepository handles user data operations. Every query here is scoped
// to a tenant_id — cross-tenant access is a bug class, not a feature.
type UserRepository struct{}

// NewUserRepository creates a new user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

const userSelectColumns = `id, tenant_id, email, password_hash, role, permissions, is_active, created_at`

func scanUserFields(scan func(dest ...interface{}) error) (models.User, error) {
	var u models.User
	var isActive int
	var permsJSON string
	err := scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Role, &permsJSON, &isActive, &u.CreatedAt)
	if err != nil {
		return u, err
	}
	u.IsActive = isActive == 1
	if permsJSON != "" {
		_ = json.Unmarshal([]byte(permsJSON), &u.Permissions)
	}
	return u, nil
}

// GetActiveByTenant returns every active user belonging to a tenant. Used by
// the notification worker to fan out an alert to every recipient.
func (r *UserRepository) GetActiveByTenant(tenantID int64) ([]models.User, error) {
	rows, err := DB.Query(`SELECT `+userSelectColumns+` FROM users WHERE tenant_id = ? AND is_active = 1`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUserFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// GetByID returns a user scoped to a tenant, or nil if none exists.
func (r *UserRepository) GetByID(tenantID, id int64) (*models.User, error) {
	row := DB.QueryRow(`SELECT `+userSelectColumns+` FROM users WHERE tenant_id = ? AND id = ?`, tenantID, id)
	u, err := scanUserFields(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user and returns its assigned id.
func (r *UserRepository) Create(u *models.User) (int64, error) {
	permsJSON, err := json.Marshal(u.Permissions)
	if err != nil {
		return 0, err
	}
	isActive := 0
	if u.IsActive {
		isActive = 1
	}
	res, err := DB.Exec(`
		INSERT INTO users (tenant_id, email, password_hash, role, permissions, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.TenantID, u.Email, u.PasswordHash, u.Role, string(permsJSON), isActive, u.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
