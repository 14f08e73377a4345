// Package settlement содержит чистую расчетную логику движка ежедневных
// расчетов: формулы распределения выручки, инкременты при записи сбора и
// закрытие дня. Здесь нет ни БД, ни транспорта — всё проверяется юнит-тестами.
package settlement

import (
	"fmt"
	"time"

	"dostavka/internal/constants"
	"dostavka/internal/models"
)

// Shares — доли распределения выручки.
type Shares struct {
	// Доля онлайн-выручки, остающаяся водителю.
	DriverOnline float64
	// Доля наличной выручки, причитающаяся владельцу.
	OwnerCash float64
}

// DefaultShares — бизнес-правило 80/20.
var DefaultShares = Shares{
	DriverOnline: constants.DEFAULT_DRIVER_ONLINE_SHARE,
	OwnerCash:    constants.DEFAULT_OWNER_CASH_SHARE,
}

// Split — распределение выручки одного дня.
type Split struct {
	DriverEarned  float64
	OwnerEarned   float64
	DriverToOwner float64
	OwnerToDriver float64
}

// ComputeSplit считает распределение дня из снимка cash/online.
// Водитель зарабатывает свою долю онлайн-выручки (она уже у платформы),
// владелец — свою долю наличных (они физически у водителя).
func ComputeSplit(cashCollected, onlineCollected float64, sh Shares) Split {
	return Split{
		DriverEarned:  onlineCollected * sh.DriverOnline,
		OwnerEarned:   cashCollected * sh.OwnerCash,
		DriverToOwner: cashCollected * sh.OwnerCash,
		OwnerToDriver: onlineCollected * sh.DriverOnline,
	}
}

// CollectionDeltas — инкременты агрегата водителя при записи одного сбора.
// Наличные целиком попадают в баланс водителя (он их физически держит до
// расчета), из онлайн-оплаты — только его доля.
type CollectionDeltas struct {
	Earnings        float64
	DayDriverEarned float64
	DayOwnerEarned  float64
}

// ComputeCollectionDeltas проверяет параметры сбора и возвращает инкременты.
func ComputeCollectionDeltas(amount float64, method string, sh Shares) (CollectionDeltas, error) {
	var d CollectionDeltas
	if amount <= 0 {
		return d, fmt.Errorf("%w: сумма должна быть положительной, получено %.2f", ErrValidation, amount)
	}
	switch method {
	case constants.PAYMENT_METHOD_CASH:
		d.Earnings = amount
		d.DayOwnerEarned = amount * sh.OwnerCash
	case constants.PAYMENT_METHOD_ONLINE:
		d.Earnings = amount * sh.DriverOnline
		d.DayDriverEarned = amount * sh.DriverOnline
	default:
		return d, fmt.Errorf("%w: неизвестный способ оплаты '%s'", ErrValidation, method)
	}
	return d, nil
}

// CloseDay закрывает корзину текущего дня в отчет-расчет за день day.
// Возвращает false, если корзина не относится к этому дню или в ней не было
// активности — в этом случае отчет не создается, но роллер всё равно
// продвигает дату последнего расчета.
func CloseDay(bucket models.CurrentDaySettlement, day time.Time, loc *time.Location, sh Shares) (models.PaymentSettlement, bool) {
	if bucket.CashCollected == 0 && bucket.OnlineCollected == 0 {
		return models.PaymentSettlement{}, false
	}
	if !DayOf(bucket.LastUpdated, loc).Equal(DayOf(day, loc)) {
		return models.PaymentSettlement{}, false
	}

	split := ComputeSplit(bucket.CashCollected, bucket.OnlineCollected, sh)
	return models.PaymentSettlement{
		ReportDate:      DayOf(day, loc),
		CashCollected:   bucket.CashCollected,
		OnlineCollected: bucket.OnlineCollected,
		DriverEarned:    split.DriverEarned,
		OwnerEarned:     split.OwnerEarned,
		DriverToOwner:   split.DriverToOwner,
		OwnerToDriver:   split.OwnerToDriver,
		Status:          constants.SETTLEMENT_STATUS_PENDING,
	}, true
}

// AmountDue — сумма, подлежащая оплате через шлюз по данному расчету.
// День с преобладанием наличных порождает долг водителя владельцу; чисто
// онлайн-день — долг владельца водителю. Эта же сумма сверяется при
// подтверждении платежа.
func AmountDue(s models.PaymentSettlement) float64 {
	if s.DriverToOwner > 0 {
		return s.DriverToOwner
	}
	return s.OwnerToDriver
}
