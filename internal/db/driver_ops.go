package db

import (
	"database/sql"
	"log"
	"time"

	"dostavka/internal/constants"
	"dostavka/internal/models"
)

// RegisterDriver создает пользователя с ролью водителя и его финансовый
// агрегат одной транзакцией.
func RegisterDriver(externalID, firstName string, lastName, phone sql.NullString) (userID int64, err error) {
	tx, err := DB.Begin()
	if err != nil {
		log.Printf("RegisterDriver: ошибка начала транзакции: %v", err)
		return 0, err
	}
	var opErr error
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if opErr != nil {
			tx.Rollback()
			err = opErr
		} else {
			opErr = tx.Commit()
			if opErr != nil {
				log.Printf("RegisterDriver: ошибка коммита транзакции: %v", opErr)
				err = opErr
			}
		}
	}()

	now := time.Now()
	opErr = tx.QueryRow(`
		INSERT INTO users (external_id, role, first_name, last_name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`,
		externalID, constants.ROLE_DRIVER, firstName, lastName, phone, now,
	).Scan(&userID)
	if opErr != nil {
		log.Printf("RegisterDriver: ошибка создания пользователя '%s': %v", externalID, opErr)
		return 0, opErr
	}

	_, opErr = tx.Exec(`
		INSERT INTO drivers (user_id, day_updated_at, created_at, updated_at)
		VALUES ($1, $2, $2, $2)`,
		userID, now,
	)
	if opErr != nil {
		log.Printf("RegisterDriver: ошибка создания агрегата водителя '%s': %v", externalID, opErr)
		return 0, opErr
	}

	log.Printf("Водитель '%s' зарегистрирован (user_id=%d).", externalID, userID)
	return userID, opErr
}

// resolveDriverUserID находит user_id водителя по внешнему идентификатору.
func resolveDriverUserID(externalID string) (int64, error) {
	var userID int64
	err := DB.QueryRow(`
		SELECT u.id
		FROM users u
		JOIN drivers d ON d.user_id = u.id
		WHERE u.external_id = $1`, externalID,
	).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrDriverNotFound
		}
		log.Printf("resolveDriverUserID: ошибка поиска водителя '%s': %v", externalID, err)
		return 0, err
	}
	return userID, nil
}

// getDriverForUpdateInTx читает агрегат водителя с блокировкой строки.
// Все многошаговые мутации одного водителя сериализуются через эту блокировку.
func getDriverForUpdateInTx(tx *sql.Tx, externalID string) (models.Driver, error) {
	var d models.Driver
	query := `
		SELECT d.user_id, d.earnings,
		       d.cash_collected_total, d.online_collected_total,
		       d.day_cash_collected, d.day_online_collected,
		       d.day_driver_earned, d.day_owner_earned, d.day_updated_at,
		       d.last_settlement_date, d.created_at, d.updated_at
		FROM drivers d
		JOIN users u ON u.id = d.user_id
		WHERE u.external_id = $1
		FOR UPDATE OF d`
	err := tx.QueryRow(query, externalID).Scan(
		&d.UserID, &d.Earnings,
		&d.PaymentBreakdown.CashTotal, &d.PaymentBreakdown.OnlineTotal,
		&d.CurrentDaySettlement.CashCollected, &d.CurrentDaySettlement.OnlineCollected,
		&d.CurrentDaySettlement.DriverEarned, &d.CurrentDaySettlement.OwnerEarned, &d.CurrentDaySettlement.LastUpdated,
		&d.LastSettlementDate, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return d, ErrDriverNotFound
		}
		log.Printf("getDriverForUpdateInTx: ошибка чтения агрегата водителя '%s': %v", externalID, err)
		return d, err
	}
	return d, nil
}

// GetDriverByExternalID читает агрегат водителя без блокировки (для выдачи).
func GetDriverByExternalID(externalID string) (models.Driver, error) {
	var d models.Driver
	query := `
		SELECT d.user_id, d.earnings,
		       d.cash_collected_total, d.online_collected_total,
		       d.day_cash_collected, d.day_online_collected,
		       d.day_driver_earned, d.day_owner_earned, d.day_updated_at,
		       d.last_settlement_date, d.created_at, d.updated_at
		FROM drivers d
		JOIN users u ON u.id = d.user_id
		WHERE u.external_id = $1`
	err := DB.QueryRow(query, externalID).Scan(
		&d.UserID, &d.Earnings,
		&d.PaymentBreakdown.CashTotal, &d.PaymentBreakdown.OnlineTotal,
		&d.CurrentDaySettlement.CashCollected, &d.CurrentDaySettlement.OnlineCollected,
		&d.CurrentDaySettlement.DriverEarned, &d.CurrentDaySettlement.OwnerEarned, &d.CurrentDaySettlement.LastUpdated,
		&d.LastSettlementDate, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return d, ErrDriverNotFound
		}
		log.Printf("GetDriverByExternalID: ошибка чтения агрегата водителя '%s': %v", externalID, err)
		return d, err
	}
	return d, nil
}

// ListDriverExternalIDs возвращает внешние идентификаторы всех водителей.
// Используется ежедневным обходом "рассчитать всех".
func ListDriverExternalIDs() ([]string, error) {
	rows, err := DB.Query(`
		SELECT u.external_id
		FROM users u
		JOIN drivers d ON d.user_id = u.id
		ORDER BY u.id`)
	if err != nil {
		log.Printf("ListDriverExternalIDs: ошибка получения списка водителей: %v", err)
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if errScan := rows.Scan(&id); errScan != nil {
			log.Printf("ListDriverExternalIDs: ошибка сканирования: %v", errScan)
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
