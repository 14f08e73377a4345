package models

import (
	"database/sql"
	"time"
)

// PaymentSettlement — отчет-расчет водителя за один календарный день.
// Создается роллером не более одного на водителя в день, всегда в статусе
// pending. Снимок сумм неизменен после создания; меняются только статус,
// время финализации и корреляционные поля шлюза.
type PaymentSettlement struct {
	ID           int64     `json:"id"`
	DriverUserID int64     `json:"driver_user_id"`
	ReportDate   time.Time `json:"report_date"`

	CashCollected   float64 `json:"cash_collected"`
	OnlineCollected float64 `json:"online_collected"`

	// Распределение выручки за день:
	// DriverEarned = online × доля водителя, OwnerEarned = cash × доля владельца.
	DriverEarned float64 `json:"driver_earned"`
	OwnerEarned  float64 `json:"owner_earned"`

	// Взаимные долги по итогам дня: наличные, которые водитель должен
	// владельцу, и онлайн-выручка, которую владелец должен водителю.
	DriverToOwner float64 `json:"driver_to_owner"`
	OwnerToDriver float64 `json:"owner_to_driver"`

	Status    string       `json:"status"`
	SettledAt sql.NullTime `json:"settled_at,omitempty"`

	// Корреляция с платежным шлюзом при онлайн-финализации.
	GatewayOrderID   sql.NullString `json:"gateway_order_id,omitempty"`
	GatewayPaymentID sql.NullString `json:"gateway_payment_id,omitempty"`
	GatewaySignature sql.NullString `json:"gateway_signature,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettlementSummary — сводка по расчетам водителя для выдачи наружу.
// Pending отсортированы по дате отчета (новые первыми), Settled — по
// времени финализации (новые первыми).
type SettlementSummary struct {
	Pending              []PaymentSettlement  `json:"pending"`
	Settled              []PaymentSettlement  `json:"settled"`
	CurrentDaySettlement CurrentDaySettlement `json:"current_day_settlement"`
	LastSettlementDate   *time.Time           `json:"last_settlement_date,omitempty"`
}

// BulkSettleResult — структурный результат массового расчета.
// Частичный успех здесь — контракт операции, а не маскировка ошибок,
// поэтому исход каждого ID отражается отдельно.
type BulkSettleResult struct {
	Requested      int     `json:"requested"`
	Valid          int     `json:"valid"`
	Updated        int     `json:"updated"`
	AlreadySettled int     `json:"already_settled"`
	Missing        int     `json:"missing"`
	Invalid        int     `json:"invalid"`
	UpdatedIDs     []int64 `json:"updated_ids"`
	SkippedIDs     []int64 `json:"skipped_ids"`

	MissingIDs []int64  `json:"missing_ids"`
	InvalidIDs []string `json:"invalid_ids"`
}

// SettlementReportRow — строка отчета для выгрузки в Excel.
type SettlementReportRow struct {
	PaymentSettlement
	DriverFirstName string         `json:"driver_first_name"`
	DriverLastName  sql.NullString `json:"driver_last_name"`
	DriverPhone     sql.NullString `json:"driver_phone"`
}
