package settlement

import (
	"time"

	"dostavka/internal/constants"
)

// DayOf обрезает момент времени до полуночи календарного дня в часовом
// поясе бизнеса.
func DayOf(t time.Time, loc *time.Location) time.Time {
	tt := t.In(loc)
	return time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, loc)
}

// Window перечисляет календарные дни строго после lastSettled и строго до
// today, в хронологическом порядке, не более maxDays за вызов.
//
// Отсутствующая (нулевая) или неправдоподобно старая дата последнего расчета
// заменяется на "30 дней назад" — ограниченное окно добора вместо
// неограниченного проигрывания истории по испорченной дате. "Сегодня" в окно
// не попадает никогда: день остается открытым, пока полностью не пройдет.
func Window(lastSettled, today time.Time, loc *time.Location, maxDays int) []time.Time {
	todayDay := DayOf(today, loc)

	floor := time.Date(constants.SETTLEMENT_SANITY_FLOOR_YEAR, 1, 1, 0, 0, 0, 0, loc)
	lastDay := DayOf(lastSettled, loc)
	if lastSettled.IsZero() || lastDay.Before(floor) {
		lastDay = todayDay.AddDate(0, 0, -constants.MAX_BACKFILL_DAYS)
	}
	// Дата в будущем — испорченные данные; считаем, что рассчитан вчерашний день.
	if lastDay.After(todayDay) {
		lastDay = todayDay
	}

	var days []time.Time
	for d := lastDay.AddDate(0, 0, 1); d.Before(todayDay) && len(days) < maxDays; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
