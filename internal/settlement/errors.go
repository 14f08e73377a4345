package settlement

import "errors"

// ErrValidation — ошибка входных данных, исправимая вызывающей стороной.
// Отклоняется до любых изменений состояния.
var ErrValidation = errors.New("ошибка валидации")
