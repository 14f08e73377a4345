// Файл: internal/utils/formatters.go

package utils

import "fmt"

// FormatMoney форматирует денежную сумму для отображения.
func FormatMoney(amount float64) string {
	return fmt.Sprintf("₹%.2f", amount)
}
