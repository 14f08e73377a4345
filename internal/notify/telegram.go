// Package notify отправляет владельцу уведомления о расчетах в Telegram.
// Все отправки — best-effort: ошибка логируется и никогда не блокирует
// основную операцию. Без токена пакет работает как заглушка.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"dostavka/internal/models"
	"dostavka/internal/utils"
)

var (
	bot         *tgbotapi.BotAPI
	ownerChatID int64
)

// Init инициализирует Telegram-клиента для уведомлений владельцу.
// Пустой токен или нулевой chat ID отключают уведомления.
func Init(token string, chatID int64) error {
	if token == "" || chatID == 0 {
		log.Println("Уведомления владельцу в Telegram отключены.")
		return nil
	}
	var err error
	bot, err = tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("ошибка инициализации Telegram-клиента: %w", err)
	}
	ownerChatID = chatID
	log.Printf("Уведомления владельцу включены (бот @%s).", bot.Self.UserName)
	return nil
}

// SettlementsCreated уведомляет владельца о новых отчетах-расчетах водителя.
func SettlementsCreated(driverExternalID string, created []models.PaymentSettlement) {
	if bot == nil || len(created) == 0 {
		return
	}
	for _, s := range created {
		text := fmt.Sprintf(
			"Новый расчет #%d за %s\nВодитель: %s\nНаличные: %s, онлайн: %s\nВодитель должен владельцу: %s\nВладелец должен водителю: %s",
			s.ID, s.ReportDate.Format("02.01.2006"), driverExternalID,
			utils.FormatMoney(s.CashCollected), utils.FormatMoney(s.OnlineCollected),
			utils.FormatMoney(s.DriverToOwner), utils.FormatMoney(s.OwnerToDriver),
		)
		send(text)
	}
}

// SettlementSettled уведомляет владельца о финализации расчета.
func SettlementSettled(driverExternalID string, settlementID int64, via string) {
	if bot == nil {
		return
	}
	send(fmt.Sprintf("Расчет #%d водителя %s закрыт (%s).", settlementID, driverExternalID, via))
}

func send(text string) {
	msg := tgbotapi.NewMessage(ownerChatID, text)
	if _, err := bot.Send(msg); err != nil {
		log.Printf("Не удалось отправить уведомление владельцу: %v", err)
	}
}
