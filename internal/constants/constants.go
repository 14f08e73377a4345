package constants

// Payment methods
// Способы оплаты, которые принимает водитель
const (
	PAYMENT_METHOD_CASH   = "cash"
	PAYMENT_METHOD_ONLINE = "online"
)

// Settlement statuses
// Статусы ежедневного отчета-расчета водителя
const (
	SETTLEMENT_STATUS_PENDING = "pending"
	SETTLEMENT_STATUS_SETTLED = "settled"
)

// User roles
// Роли пользователей системы
const (
	ROLE_DRIVER   = "driver"
	ROLE_OPERATOR = "operator"
	ROLE_OWNER    = "owner"
)

// RoleHierarchy определяет порядок ролей для проверки прав доступа.
// Чем больше значение, тем выше права.
var RoleHierarchy = map[string]int{
	ROLE_DRIVER:   1,
	ROLE_OPERATOR: 2,
	ROLE_OWNER:    3,
}

// Settlement engine limits
// Ограничения движка расчетов
const (
	// Максимальное число календарных дней, закрываемых за один вызов роллера.
	// Неактивный водитель добирается повторными вызовами, а не одной гигантской пачкой.
	MAX_BACKFILL_DAYS = 30

	// Год-"пол здравого смысла": дата последнего расчета раньше этого года
	// считается испорченной и заменяется на окно в MAX_BACKFILL_DAYS дней.
	SETTLEMENT_SANITY_FLOOR_YEAR = 2020

	// Максимальное количество ID в одном запросе массового расчета.
	MAX_BULK_SETTLE_IDS = 200
)

// Default revenue split
// Доли по умолчанию: водитель оставляет себе 80% онлайн-выручки,
// владелец получает 20% наличной выручки.
const (
	DEFAULT_DRIVER_ONLINE_SHARE = 0.8
	DEFAULT_OWNER_CASH_SHARE    = 0.2
)

// Валюта всех расчетов через платежный шлюз.
const CURRENCY = "INR"

// Часовой пояс бизнеса по умолчанию. Все границы календарных дней считаются в нем.
const DEFAULT_BUSINESS_TIMEZONE = "Asia/Kolkata"
