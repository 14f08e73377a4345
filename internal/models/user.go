package models

import (
	"database/sql"
	"time"
)

// User представляет пользователя системы (водитель, оператор или владелец).
// ExternalID — стабильный внешний идентификатор, который приходит из
// системы аутентификации; внутри ядра он считается уже проверенным.
type User struct {
	ID         int64          `json:"id"`
	ExternalID string         `json:"external_id"`
	Role       string         `json:"role"`
	FirstName  string         `json:"first_name"`
	LastName   sql.NullString `json:"last_name,omitempty"`
	Phone      sql.NullString `json:"phone,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
