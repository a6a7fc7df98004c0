package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrCredentialNotFound = errors.New("provider credential not found for user")

// CredentialRepository выдаёт API-ключ провайдера для конкретного организатора.
// Таблицей users владеет внешняя система аутентификации; здесь читается только
// колонка api_key.
type CredentialRepository interface {
	APIKeyForUser(ctx context.Context, userID int) (string, error)
}

type postgresCredentialRepository struct {
	db *sql.DB
}

func NewPostgresCredentialRepository(db *sql.DB) CredentialRepository {
	return &postgresCredentialRepository{db: db}
}

func (r *postgresCredentialRepository) APIKeyForUser(ctx context.Context, userID int) (string, error) {
	query := `SELECT api_key FROM users WHERE id = $1`

	var apiKey sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&apiKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrCredentialNotFound
		}
		return "", fmt.Errorf("failed to load api key for user %d: %w", userID, err)
	}
	if !apiKey.Valid || apiKey.String == "" {
		return "", ErrCredentialNotFound
	}
	return apiKey.String, nil
}
