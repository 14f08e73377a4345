package models

import (
	"database/sql"
	"time"
)

// PaymentBreakdown — накопительные итоги по способам оплаты за всё время.
// Только растут, никогда не уменьшаются.
type PaymentBreakdown struct {
	CashTotal   float64 `json:"cash_total"`
	OnlineTotal float64 `json:"online_total"`
}

// CurrentDaySettlement — открытая "корзина" текущего дня: деньги, собранные
// водителем с момента последнего закрытия дня. Поля DriverEarned/OwnerEarned
// носят информационный характер; суммы итогового отчета всегда пересчитываются
// из снимка cash/online при закрытии дня.
type CurrentDaySettlement struct {
	CashCollected   float64   `json:"cash_collected"`
	OnlineCollected float64   `json:"online_collected"`
	DriverEarned    float64   `json:"driver_earned"`
	OwnerEarned     float64   `json:"owner_earned"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Driver — финансовый агрегат водителя. Одна строка на зарегистрированного
// водителя; все операции ядра (запись сбора, роллер, финализация) изменяют
// именно её и сериализуются через блокировку этой строки.
type Driver struct {
	UserID int64 `json:"user_id"`

	// Текущий баланс водителя. Может кратковременно уходить в минус,
	// пока расчет не компенсирует перевод в пользу владельца.
	Earnings float64 `json:"earnings"`

	PaymentBreakdown     PaymentBreakdown     `json:"payment_breakdown"`
	CurrentDaySettlement CurrentDaySettlement `json:"current_day_settlement"`

	// Календарный день (в часовом поясе бизнеса), по который включительно
	// выполнены расчеты. Монотонно растет и никогда не в будущем.
	LastSettlementDate sql.NullTime `json:"last_settlement_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CollectedPayment — запись в журнале сырых событий сбора оплаты.
// Журнал только пополняется. SettlementID заполняется у транзакций,
// порожденных финализацией расчета через платежный шлюз.
type CollectedPayment struct {
	ID           int64         `json:"id"`
	DriverUserID int64         `json:"driver_user_id"`
	Amount       float64       `json:"amount"`
	Method       string        `json:"method"`
	OrderID      sql.NullInt64 `json:"order_id,omitempty"`
	SettlementID sql.NullInt64 `json:"settlement_id,omitempty"`
	CollectedAt  time.Time     `json:"collected_at"`
}
