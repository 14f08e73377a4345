package db

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/lib/pq"

	"dostavka/internal/constants"
	"dostavka/internal/models"
	"dostavka/internal/settlement"
)

// insertSettlementInTx добавляет новый pending-отчет за день в рамках
// транзакции. Уникальный индекс (driver_user_id, report_date) страхует
// инвариант "не более одного отчета на водителя в день".
func insertSettlementInTx(tx *sql.Tx, s models.PaymentSettlement) (int64, error) {
	query := `
        INSERT INTO payment_settlements (
            driver_user_id, report_date,
            cash_collected, online_collected,
            driver_earned, owner_earned, driver_to_owner, owner_to_driver,
            status, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id`
	var id int64
	err := tx.QueryRow(query,
		s.DriverUserID, s.ReportDate.Format("2006-01-02"),
		s.CashCollected, s.OnlineCollected,
		s.DriverEarned, s.OwnerEarned, s.DriverToOwner, s.OwnerToDriver,
		constants.SETTLEMENT_STATUS_PENDING,
	).Scan(&id)
	if err != nil {
		log.Printf("insertSettlementInTx: ошибка добавления отчета за %s для водителя %d: %v", s.ReportDate.Format("2006-01-02"), s.DriverUserID, err)
		return 0, err
	}
	return id, nil
}

// advanceDriverDayInTx продвигает дату последнего расчета водителя на день day
// и, если день был закрыт в отчет, обнуляет корзину текущего дня.
func advanceDriverDayInTx(tx *sql.Tx, driverUserID int64, day time.Time, resetBucket bool) error {
	var err error
	if resetBucket {
		_, err = tx.Exec(`
			UPDATE drivers SET
				day_cash_collected = 0,
				day_online_collected = 0,
				day_driver_earned = 0,
				day_owner_earned = 0,
				day_updated_at = NOW(),
				last_settlement_date = $2,
				updated_at = NOW()
			WHERE user_id = $1`, driverUserID, day.Format("2006-01-02"))
	} else {
		_, err = tx.Exec(`
			UPDATE drivers SET
				last_settlement_date = $2,
				updated_at = NOW()
			WHERE user_id = $1`, driverUserID, day.Format("2006-01-02"))
	}
	if err != nil {
		return fmt.Errorf("ошибка продвижения даты расчета водителя %d: %w", driverUserID, err)
	}
	return nil
}

// rollElapsedDaysInTx закрывает все прошедшие дни водителя в рамках уже
// открытой транзакции. Вызывается из записи сбора, чтобы корзина сегодняшнего
// дня никогда не смешивалась с нерассчитанными прошлыми днями.
func rollElapsedDaysInTx(tx *sql.Tx, d *models.Driver, now time.Time) ([]models.PaymentSettlement, error) {
	var lastSettled time.Time
	if d.LastSettlementDate.Valid {
		lastSettled = d.LastSettlementDate.Time
	}

	days := settlement.Window(lastSettled, now, businessLoc, backfillDays)
	var created []models.PaymentSettlement

	for _, day := range days {
		s, ok := settlement.CloseDay(d.CurrentDaySettlement, day, businessLoc, shares)
		if ok {
			s.DriverUserID = d.UserID
			id, err := insertSettlementInTx(tx, s)
			if err != nil {
				return created, err
			}
			s.ID = id
			created = append(created, s)

			// Корзина закрыта в отчет, начинаем новый счет с нуля.
			d.CurrentDaySettlement = models.CurrentDaySettlement{LastUpdated: now}
		}
		// Дата продвигается и по дням без активности: это гарантирует
		// прогресс и не более одного отчета за день.
		if err := advanceDriverDayInTx(tx, d.UserID, day, ok); err != nil {
			return created, err
		}
		d.LastSettlementDate = sql.NullTime{Time: day, Valid: true}
	}
	return created, nil
}

// rollNextDay закрывает ОДИН следующий прошедший день водителя в отдельной
// транзакции. Возвращает advanced=false, когда закрывать больше нечего.
func rollNextDay(externalID string, now time.Time) (created *models.PaymentSettlement, advanced bool, err error) {
	tx, err := DB.Begin()
	if err != nil {
		log.Printf("rollNextDay: ошибка начала транзакции: %v", err)
		return nil, false, err
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
				log.Printf("rollNextDay: ошибка коммита транзакции: %v", opErr)
				err = opErr
			}
		}
	}()

	d, opErr := getDriverForUpdateInTx(tx, externalID)
	if opErr != nil {
		return nil, false, opErr
	}

	var lastSettled time.Time
	if d.LastSettlementDate.Valid {
		lastSettled = d.LastSettlementDate.Time
	}
	days := settlement.Window(lastSettled, now, businessLoc, 1)
	if len(days) == 0 {
		return nil, false, nil
	}
	day := days[0]

	s, ok := settlement.CloseDay(d.CurrentDaySettlement, day, businessLoc, shares)
	if ok {
		s.DriverUserID = d.UserID
		var id int64
		id, opErr = insertSettlementInTx(tx, s)
		if opErr != nil {
			return nil, false, opErr
		}
		s.ID = id
		created = &s
	}
	if opErr = advanceDriverDayInTx(tx, d.UserID, day, ok); opErr != nil {
		return nil, false, opErr
	}
	return created, true, nil
}

// RollSettlements закрывает все прошедшие дни водителя, не более окна добора
// за вызов. Каждый день коммитится отдельной транзакцией: сбой посреди добора
// не откатывает уже закрытые дни. Идемпотентна — повторный вызов без новой
// активности ничего не создает.
func RollSettlements(externalID string) ([]models.PaymentSettlement, error) {
	now := time.Now()
	var created []models.PaymentSettlement
	for i := 0; i < backfillDays; i++ {
		s, advanced, err := rollNextDay(externalID, now)
		if err != nil {
			return created, err
		}
		if !advanced {
			break
		}
		if s != nil {
			created = append(created, *s)
		}
	}
	if len(created) > 0 {
		log.Printf("RollSettlements: для водителя '%s' создано отчетов: %d.", externalID, len(created))
	}
	return created, nil
}

// RollAllDrivers — ежедневный обход: закрывает прошедшие дни у всех
// водителей. Ошибка по одному водителю логируется и не прерывает обход.
func RollAllDrivers() (driversRolled int, settlementsCreated int, err error) {
	ids, err := ListDriverExternalIDs()
	if err != nil {
		return 0, 0, err
	}
	for _, externalID := range ids {
		created, errRoll := RollSettlements(externalID)
		if errRoll != nil {
			log.Printf("RollAllDrivers: ошибка расчета водителя '%s': %v", externalID, errRoll)
			continue
		}
		driversRolled++
		settlementsCreated += len(created)
	}
	log.Printf("RollAllDrivers: обработано водителей: %d, создано отчетов: %d.", driversRolled, settlementsCreated)
	return driversRolled, settlementsCreated, nil
}

// SettlePayment — ручная финализация одного расчета: pending -> settled.
// Повторная финализация отклоняется: уже рассчитанный отчет не проходит
// предикат status = 'pending'.
func SettlePayment(externalID string, settlementID int64) error {
	driverUserID, err := resolveDriverUserID(externalID)
	if err != nil {
		return err
	}

	query := `
		UPDATE payment_settlements
		SET status = $1, settled_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND driver_user_id = $3 AND status = $4`
	result, err := DB.Exec(query, constants.SETTLEMENT_STATUS_SETTLED, settlementID, driverUserID, constants.SETTLEMENT_STATUS_PENDING)
	if err != nil {
		log.Printf("SettlePayment: ошибка финализации расчета #%d: %v", settlementID, err)
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		var existsAndSettled bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM payment_settlements WHERE id = $1 AND driver_user_id = $2 AND status = $3)`
		errCheck := DB.QueryRow(checkQuery, settlementID, driverUserID, constants.SETTLEMENT_STATUS_SETTLED).Scan(&existsAndSettled)
		if errCheck == nil && existsAndSettled {
			log.Printf("SettlePayment: расчет #%d уже был финализирован ранее, повтор отклонен.", settlementID)
		}
		return ErrSettlementNotPending
	}
	log.Printf("Расчет #%d водителя '%s' финализирован вручную.", settlementID, externalID)
	return nil
}

// BulkSettlePayments финализирует все ожидающие расчеты из списка одной
// транзакцией. Уже рассчитанные сообщаются как пропущенные, отсутствующие —
// отдельно; частичный успех здесь — контракт операции.
func BulkSettlePayments(externalID string, ids []int64) (res models.BulkSettleResult, err error) {
	res = models.BulkSettleResult{Valid: len(ids)}

	driverUserID, err := resolveDriverUserID(externalID)
	if err != nil {
		return res, err
	}

	tx, err := DB.Begin()
	if err != nil {
		log.Printf("BulkSettlePayments: ошибка начала транзакции: %v", err)
		return res, err
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
				log.Printf("BulkSettlePayments: ошибка коммита транзакции: %v", opErr)
				err = opErr
			}
		}
	}()

	// Одной командой финализируем все подходящие pending-расчеты.
	rows, opErr := tx.Query(`
		UPDATE payment_settlements
		SET status = $1, settled_at = NOW(), updated_at = NOW()
		WHERE id = ANY($2) AND driver_user_id = $3 AND status = $4
		RETURNING id`,
		constants.SETTLEMENT_STATUS_SETTLED, pq.Array(ids), driverUserID, constants.SETTLEMENT_STATUS_PENDING,
	)
	if opErr != nil {
		log.Printf("BulkSettlePayments: ошибка массовой финализации для водителя '%s': %v", externalID, opErr)
		return res, opErr
	}
	updated := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if errScan := rows.Scan(&id); errScan != nil {
			rows.Close()
			opErr = errScan
			return res, opErr
		}
		updated[id] = true
		res.UpdatedIDs = append(res.UpdatedIDs, id)
	}
	rows.Close()
	if opErr = rows.Err(); opErr != nil {
		return res, opErr
	}

	// Разделяем остаток на "уже рассчитан" и "не найден".
	settledRows, errQ := tx.Query(`
		SELECT id FROM payment_settlements
		WHERE id = ANY($1) AND driver_user_id = $2 AND status = $3`,
		pq.Array(ids), driverUserID, constants.SETTLEMENT_STATUS_SETTLED,
	)
	if errQ != nil {
		opErr = errQ
		return res, opErr
	}
	settledNow := make(map[int64]bool)
	for settledRows.Next() {
		var id int64
		if errScan := settledRows.Scan(&id); errScan != nil {
			settledRows.Close()
			opErr = errScan
			return res, opErr
		}
		settledNow[id] = true
	}
	settledRows.Close()
	if opErr = settledRows.Err(); opErr != nil {
		return res, opErr
	}

	for _, id := range ids {
		if updated[id] {
			continue
		}
		if settledNow[id] {
			res.SkippedIDs = append(res.SkippedIDs, id)
		} else {
			res.MissingIDs = append(res.MissingIDs, id)
		}
	}

	res.Updated = len(res.UpdatedIDs)
	res.AlreadySettled = len(res.SkippedIDs)
	res.Missing = len(res.MissingIDs)

	log.Printf("BulkSettlePayments: водитель '%s': обновлено %d, уже рассчитано %d, не найдено %d.", externalID, res.Updated, res.AlreadySettled, res.Missing)
	return res, opErr
}

// FinalizeSettlementViaGateway завершает расчет по подтвержденному платежу
// шлюза: переводит отчет в settled, проставляет корреляционные поля,
// выравнивает баланс водителя и добавляет запись в журнал сборов. Подпись
// платежа проверяется вызывающим ДО этой операции; здесь дополнительно
// сверяется заявленная сумма с суммами самого расчета.
func FinalizeSettlementViaGateway(externalID string, settlementID int64, gatewayOrderID, gatewayPaymentID, gatewaySignature string, claimedAmount float64) (s models.PaymentSettlement, err error) {
	tx, err := DB.Begin()
	if err != nil {
		log.Printf("FinalizeSettlementViaGateway: ошибка начала транзакции: %v", err)
		return s, err
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
				log.Printf("FinalizeSettlementViaGateway: ошибка коммита транзакции: %v", opErr)
				err = opErr
			}
		}
	}()

	// Блокировка агрегата сериализует конкурентные финализации.
	d, opErr := getDriverForUpdateInTx(tx, externalID)
	if opErr != nil {
		return s, opErr
	}

	opErr = tx.QueryRow(`
		SELECT id, driver_user_id, report_date,
		       cash_collected, online_collected,
		       driver_earned, owner_earned, driver_to_owner, owner_to_driver,
		       status, settled_at, gateway_order_id, gateway_payment_id, gateway_signature,
		       created_at, updated_at
		FROM payment_settlements
		WHERE id = $1 AND driver_user_id = $2
		FOR UPDATE`, settlementID, d.UserID,
	).Scan(
		&s.ID, &s.DriverUserID, &s.ReportDate,
		&s.CashCollected, &s.OnlineCollected,
		&s.DriverEarned, &s.OwnerEarned, &s.DriverToOwner, &s.OwnerToDriver,
		&s.Status, &s.SettledAt, &s.GatewayOrderID, &s.GatewayPaymentID, &s.GatewaySignature,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if opErr != nil {
		if opErr == sql.ErrNoRows {
			opErr = ErrSettlementNotPending
		}
		return s, opErr
	}
	if s.Status != constants.SETTLEMENT_STATUS_PENDING {
		log.Printf("FinalizeSettlementViaGateway: расчет #%d уже финализирован, повтор отклонен.", settlementID)
		opErr = ErrSettlementNotPending
		return s, opErr
	}

	// Сверка суммы с данными самого расчета: шлюзу верим только после
	// совпадения подписи, сумме — только после совпадения с отчетом.
	expected := settlement.AmountDue(s)
	if math.Abs(claimedAmount-expected) > 0.01 {
		log.Printf("ВНИМАНИЕ: заявленная сумма %.2f не сходится с расчетом #%d (ожидалось %.2f).", claimedAmount, settlementID, expected)
		opErr = ErrAmountMismatch
		return s, opErr
	}

	_, opErr = tx.Exec(`
		UPDATE payment_settlements
		SET status = $1, settled_at = NOW(),
		    gateway_order_id = $2, gateway_payment_id = $3, gateway_signature = $4,
		    updated_at = NOW()
		WHERE id = $5`,
		constants.SETTLEMENT_STATUS_SETTLED, gatewayOrderID, gatewayPaymentID, gatewaySignature, settlementID,
	)
	if opErr != nil {
		log.Printf("FinalizeSettlementViaGateway: ошибка обновления расчета #%d: %v", settlementID, opErr)
		return s, opErr
	}

	// Выравнивание баланса: наличный долг уходит владельцу, онлайн-выручка
	// приходит водителю. Оба направления независимы.
	_, opErr = tx.Exec(`
		UPDATE drivers
		SET earnings = earnings - $1 + $2, updated_at = NOW()
		WHERE user_id = $3`,
		s.DriverToOwner, s.OwnerToDriver, d.UserID,
	)
	if opErr != nil {
		log.Printf("FinalizeSettlementViaGateway: ошибка выравнивания баланса водителя %d: %v", d.UserID, opErr)
		return s, opErr
	}

	// Транзакция выплаты попадает в журнал сборов с привязкой к расчету.
	_, opErr = tx.Exec(`
		INSERT INTO collected_payments (driver_user_id, amount, method, settlement_id, collected_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		d.UserID, claimedAmount, constants.PAYMENT_METHOD_ONLINE, settlementID,
	)
	if opErr != nil {
		log.Printf("FinalizeSettlementViaGateway: ошибка записи в журнал сборов: %v", opErr)
		return s, opErr
	}

	s.Status = constants.SETTLEMENT_STATUS_SETTLED
	s.GatewayOrderID = sql.NullString{String: gatewayOrderID, Valid: true}
	s.GatewayPaymentID = sql.NullString{String: gatewayPaymentID, Valid: true}
	s.GatewaySignature = sql.NullString{String: gatewaySignature, Valid: true}

	log.Printf("Расчет #%d водителя '%s' финализирован через платежный шлюз (заказ %s).", settlementID, externalID, gatewayOrderID)
	return s, opErr
}

// GetSettlementByID получает один расчет водителя.
func GetSettlementByID(externalID string, settlementID int64) (models.PaymentSettlement, error) {
	var s models.PaymentSettlement
	driverUserID, err := resolveDriverUserID(externalID)
	if err != nil {
		return s, err
	}
	err = DB.QueryRow(`
		SELECT id, driver_user_id, report_date,
		       cash_collected, online_collected,
		       driver_earned, owner_earned, driver_to_owner, owner_to_driver,
		       status, settled_at, gateway_order_id, gateway_payment_id, gateway_signature,
		       created_at, updated_at
		FROM payment_settlements
		WHERE id = $1 AND driver_user_id = $2`, settlementID, driverUserID,
	).Scan(
		&s.ID, &s.DriverUserID, &s.ReportDate,
		&s.CashCollected, &s.OnlineCollected,
		&s.DriverEarned, &s.OwnerEarned, &s.DriverToOwner, &s.OwnerToDriver,
		&s.Status, &s.SettledAt, &s.GatewayOrderID, &s.GatewayPaymentID, &s.GatewaySignature,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return s, ErrSettlementNotPending
		}
		log.Printf("GetSettlementByID: ошибка получения расчета #%d: %v", settlementID, err)
		return s, err
	}
	return s, nil
}

// GetSettlementSummary — сводка по расчетам водителя: ожидающие (новые
// первыми по дате отчета), рассчитанные (новые первыми по времени
// финализации), открытая корзина и дата последнего расчета.
func GetSettlementSummary(externalID string) (models.SettlementSummary, error) {
	var summary models.SettlementSummary

	d, err := GetDriverByExternalID(externalID)
	if err != nil {
		return summary, err
	}
	summary.CurrentDaySettlement = d.CurrentDaySettlement
	if d.LastSettlementDate.Valid {
		t := d.LastSettlementDate.Time
		summary.LastSettlementDate = &t
	}

	summary.Pending, err = querySettlements(`
		SELECT id, driver_user_id, report_date,
		       cash_collected, online_collected,
		       driver_earned, owner_earned, driver_to_owner, owner_to_driver,
		       status, settled_at, gateway_order_id, gateway_payment_id, gateway_signature,
		       created_at, updated_at
		FROM payment_settlements
		WHERE driver_user_id = $1 AND status = $2
		ORDER BY report_date DESC`, d.UserID, constants.SETTLEMENT_STATUS_PENDING)
	if err != nil {
		return summary, err
	}

	summary.Settled, err = querySettlements(`
		SELECT id, driver_user_id, report_date,
		       cash_collected, online_collected,
		       driver_earned, owner_earned, driver_to_owner, owner_to_driver,
		       status, settled_at, gateway_order_id, gateway_payment_id, gateway_signature,
		       created_at, updated_at
		FROM payment_settlements
		WHERE driver_user_id = $1 AND status = $2
		ORDER BY settled_at DESC`, d.UserID, constants.SETTLEMENT_STATUS_SETTLED)
	if err != nil {
		return summary, err
	}

	if summary.Pending == nil {
		summary.Pending = []models.PaymentSettlement{}
	}
	if summary.Settled == nil {
		summary.Settled = []models.PaymentSettlement{}
	}
	return summary, nil
}

// querySettlements выполняет запрос списка расчетов с единым порядком колонок.
func querySettlements(query string, args ...interface{}) ([]models.PaymentSettlement, error) {
	rows, err := DB.Query(query, args...)
	if err != nil {
		log.Printf("querySettlements: ошибка запроса расчетов: %v", err)
		return nil, err
	}
	defer rows.Close()

	var settlements []models.PaymentSettlement
	for rows.Next() {
		var s models.PaymentSettlement
		errScan := rows.Scan(
			&s.ID, &s.DriverUserID, &s.ReportDate,
			&s.CashCollected, &s.OnlineCollected,
			&s.DriverEarned, &s.OwnerEarned, &s.DriverToOwner, &s.OwnerToDriver,
			&s.Status, &s.SettledAt, &s.GatewayOrderID, &s.GatewayPaymentID, &s.GatewaySignature,
			&s.CreatedAt, &s.UpdatedAt,
		)
		if errScan != nil {
			// Неполная финансовая выдача хуже отказа: ошибку наружу.
			log.Printf("querySettlements: ошибка сканирования расчета: %v", errScan)
			return nil, errScan
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}

// GetSettlementsForReport возвращает строки для Excel-отчета владельца
// за период [from; to] включительно.
func GetSettlementsForReport(from, to time.Time) ([]models.SettlementReportRow, error) {
	rows, err := DB.Query(`
		SELECT ps.id, ps.driver_user_id, ps.report_date,
		       ps.cash_collected, ps.online_collected,
		       ps.driver_earned, ps.owner_earned, ps.driver_to_owner, ps.owner_to_driver,
		       ps.status, ps.settled_at, ps.gateway_order_id, ps.gateway_payment_id, ps.gateway_signature,
		       ps.created_at, ps.updated_at,
		       u.first_name, u.last_name, u.phone
		FROM payment_settlements ps
		JOIN users u ON u.id = ps.driver_user_id
		WHERE ps.report_date >= $1 AND ps.report_date <= $2
		ORDER BY ps.report_date DESC, u.first_name`,
		from.Format("2006-01-02"), to.Format("2006-01-02"),
	)
	if err != nil {
		log.Printf("GetSettlementsForReport: ошибка запроса отчетных данных: %v", err)
		return nil, err
	}
	defer rows.Close()

	var result []models.SettlementReportRow
	for rows.Next() {
		var r models.SettlementReportRow
		errScan := rows.Scan(
			&r.ID, &r.DriverUserID, &r.ReportDate,
			&r.CashCollected, &r.OnlineCollected,
			&r.DriverEarned, &r.OwnerEarned, &r.DriverToOwner, &r.OwnerToDriver,
			&r.Status, &r.SettledAt, &r.GatewayOrderID, &r.GatewayPaymentID, &r.GatewaySignature,
			&r.CreatedAt, &r.UpdatedAt,
			&r.DriverFirstName, &r.DriverLastName, &r.DriverPhone,
		)
		if errScan != nil {
			// Отчет владельцу не должен молча терять строки.
			log.Printf("GetSettlementsForReport: ошибка сканирования строки: %v", errScan)
			return nil, errScan
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
