package settlement

import (
	"fmt"
	"strconv"

	"dostavka/internal/constants"
)

// ParseSettlementIDs готовит список ID для массового расчета: удаляет
// дубликаты, отфильтровывает нечисловые значения (они попадают в invalid и
// сообщаются вызывающему отдельно, а не валят весь запрос). Слишком длинный
// список отклоняется целиком — операция обязана оставаться ограниченной.
func ParseSettlementIDs(raw []string) (valid []int64, invalid []string, err error) {
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("%w: список ID пуст", ErrValidation)
	}
	if len(raw) > constants.MAX_BULK_SETTLE_IDS {
		return nil, nil, fmt.Errorf("%w: слишком много ID в одном запросе (%d, максимум %d)", ErrValidation, len(raw), constants.MAX_BULK_SETTLE_IDS)
	}

	seen := make(map[int64]bool, len(raw))
	for _, r := range raw {
		id, errParse := strconv.ParseInt(r, 10, 64)
		if errParse != nil || id <= 0 {
			invalid = append(invalid, r)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		valid = append(valid, id)
	}
	return valid, invalid, nil
}
