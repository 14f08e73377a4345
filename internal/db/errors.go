package db

import "errors"

// Сигнальные ошибки слоя хранения. HTTP-слой превращает их в коды ответов
// через errors.Is, не разбирая текст.
var (
	// ErrUserNotFound — пользователь с таким внешним идентификатором не найден.
	ErrUserNotFound = errors.New("пользователь не найден")

	// ErrDriverNotFound — финансовый агрегат водителя не найден.
	ErrDriverNotFound = errors.New("водитель не найден")

	// ErrSettlementNotPending — расчет не найден среди ожидающих: либо его
	// нет, либо он уже финализирован. Повторная финализация отклоняется.
	ErrSettlementNotPending = errors.New("расчет не найден среди ожидающих")

	// ErrAmountMismatch — заявленная сумма платежа не сходится с суммами
	// самого расчета. Отклоняется как потенциальная подделка.
	ErrAmountMismatch = errors.New("сумма платежа не сходится с расчетом")
)
