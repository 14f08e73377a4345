package db

import (
	"database/sql"
	"log"

	"dostavka/internal/models"
)

// GetUserByExternalID получает пользователя по внешнему идентификатору.
func GetUserByExternalID(externalID string) (models.User, error) {
	var u models.User
	query := `
		SELECT id, external_id, role, first_name, last_name, phone, created_at, updated_at
		FROM users
		WHERE external_id = $1`
	err := DB.QueryRow(query, externalID).Scan(
		&u.ID, &u.ExternalID, &u.Role, &u.FirstName, &u.LastName, &u.Phone, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return u, ErrUserNotFound
		}
		log.Printf("GetUserByExternalID: ошибка получения пользователя '%s': %v", externalID, err)
		return u, err
	}
	return u, nil
}
