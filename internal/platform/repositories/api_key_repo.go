package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
)

type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(key *models.APIKey) error {
	if key.ID == "" {
		key.ID = "key_" + uuid.New().String()
	}
	key.CreatedAt = time.Now().Unix()

	query := `
		INSERT INTO api_keys (id, organization_id, name, key_hash, key_prefix, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, key.ID, key.OrganizationID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt)
	return err
}

func (r *APIKeyRepository) GetByPrefix(prefix string) (*models.APIKey, error) {
	query := `SELECT id, organization_id, name, key_hash, key_prefix, created_at, revoked_at FROM api_keys WHERE key_prefix = ?`
	row := r.db.QueryRow(query, prefix)

	var k models.APIKey
	var revokedAt sql.NullInt64

	err := row.Scan(&k.ID, &k.OrganizationID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.CreatedAt, &revokedAt)
	if err != nil {
		return nil, err
	}

	if revokedAt.Valid {
		k.RevokedAt = &revokedAt.Int64
	}

	return &k, nil
}

func (r *APIKeyRepository) ListByOrg(orgID string) ([]*models.APIKey, error) {
	query := `SELECT id, organization_id, name, key_hash, key_prefix, created_at, revoked_at FROM api_keys WHERE organization_id = ? ORDER BY created_at DESC`
	rows, err := r.db.Query(query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		var revokedAt sql.NullInt64
		if err := rows.Scan(&k.ID, &k.OrganizationID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.CreatedAt, &revokedAt); err != nil {
			return nil, err
		}
		if revokedAt.Valid {
			k.RevokedAt = &revokedAt.Int64
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (r *APIKeyRepository) Revoke(id string) error {
	_, err := r.db.Exec(`UPDATE api_keys SET revoked_at = ? WHERE id = ?`, time.Now().Unix(), id)
	return err
}
