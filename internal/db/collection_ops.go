package db

import (
	"database/sql"
	"log"
	"time"

	"dostavka/internal/constants"
	"dostavka/internal/models"
	"dostavka/internal/settlement"
)

// RecordCollection записывает один сбор оплаты водителем. Все эффекты —
// добор прошедших дней, инкременты корзины, баланса и накопительных итогов,
// запись в журнал — фиксируются одной транзакцией: либо всё, либо ничего.
// Добор идет первым, чтобы сегодняшняя корзина не смешалась с деньгами
// нерассчитанных прошлых дней.
func RecordCollection(externalID string, amount float64, method string, orderID sql.NullInt64) (created []models.PaymentSettlement, err error) {
	// Проверка входных данных до любых изменений состояния.
	deltas, err := settlement.ComputeCollectionDeltas(amount, method, shares)
	if err != nil {
		return nil, err
	}

	tx, err := DB.Begin()
	if err != nil {
		log.Printf("RecordCollection: ошибка начала транзакции: %v", err)
		return nil, err
	}
	var opErr error
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if opErr != nil {
			tx.Rollback()
			log.Printf("RecordCollection: откат транзакции из-за ошибки: %v", opErr)
			err = opErr
		} else {
			opErr = tx.Commit()
			if opErr != nil {
				log.Printf("RecordCollection: ошибка коммита транзакции: %v", opErr)
				err = opErr
			}
		}
	}()

	d, opErr := getDriverForUpdateInTx(tx, externalID)
	if opErr != nil {
		return nil, opErr
	}

	now := time.Now()
	created, opErr = rollElapsedDaysInTx(tx, &d, now)
	if opErr != nil {
		return created, opErr
	}

	var cashAmount, onlineAmount float64
	if method == constants.PAYMENT_METHOD_CASH {
		cashAmount = amount
	} else {
		onlineAmount = amount
	}

	_, opErr = tx.Exec(`
		UPDATE drivers SET
			earnings = earnings + $1,
			cash_collected_total = cash_collected_total + $2,
			online_collected_total = online_collected_total + $3,
			day_cash_collected = day_cash_collected + $2,
			day_online_collected = day_online_collected + $3,
			day_driver_earned = day_driver_earned + $4,
			day_owner_earned = day_owner_earned + $5,
			day_updated_at = $6,
			updated_at = $6
		WHERE user_id = $7`,
		deltas.Earnings, cashAmount, onlineAmount,
		deltas.DayDriverEarned, deltas.DayOwnerEarned,
		now, d.UserID,
	)
	if opErr != nil {
		log.Printf("RecordCollection: ошибка обновления агрегата водителя %d: %v", d.UserID, opErr)
		return created, opErr
	}

	_, opErr = tx.Exec(`
		INSERT INTO collected_payments (driver_user_id, amount, method, order_id, collected_at)
		VALUES ($1, $2, $3, $4, $5)`,
		d.UserID, amount, method, orderID, now,
	)
	if opErr != nil {
		log.Printf("RecordCollection: ошибка записи в журнал сборов: %v", opErr)
		return created, opErr
	}

	log.Printf("Сбор %.2f (%s) записан для водителя '%s'.", amount, method, externalID)
	return created, opErr
}
