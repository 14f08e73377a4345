// internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"dostavka/internal/constants"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	AppEnv       string
	Port         string
	APISecretKey string

	// Часовой пояс бизнеса. Все границы календарных дней считаются в нем.
	BusinessTimezone string
	BusinessLocation *time.Location

	// Доли распределения выручки между водителем и владельцем.
	DriverOnlineShare float64
	OwnerCashShare    float64

	// Максимальное число дней, закрываемых роллером за один вызов.
	SettlementBackfillDays int

	// Платежный шлюз Razorpay.
	RazorpayKeyID     string
	RazorpayKeySecret string

	// Уведомления владельцу в Telegram (опционально).
	TelegramToken string
	OwnerChatID   int64
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		AppEnv:       os.Getenv("ENV"),
		Port:         os.Getenv("PORT"),
		APISecretKey: os.Getenv("API_SECRET_KEY"),

		BusinessTimezone: os.Getenv("BUSINESS_TIMEZONE"),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),

		TelegramToken: os.Getenv("TELEGRAM_APITOKEN"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if cfg.BusinessTimezone == "" {
		cfg.BusinessTimezone = constants.DEFAULT_BUSINESS_TIMEZONE
	}
	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		log.Printf("Критическая ошибка: не удалось загрузить часовой пояс '%s': %v", cfg.BusinessTimezone, err)
		return nil, err
	}
	cfg.BusinessLocation = loc

	cfg.DriverOnlineShare = loadShare("DRIVER_ONLINE_SHARE", constants.DEFAULT_DRIVER_ONLINE_SHARE)
	cfg.OwnerCashShare = loadShare("OWNER_CASH_SHARE", constants.DEFAULT_OWNER_CASH_SHARE)

	backfillStr := os.Getenv("SETTLEMENT_BACKFILL_DAYS")
	if backfillStr == "" {
		cfg.SettlementBackfillDays = constants.MAX_BACKFILL_DAYS
	} else {
		backfill, errParse := strconv.Atoi(backfillStr)
		if errParse != nil || backfill <= 0 {
			log.Printf("Предупреждение: некорректное значение SETTLEMENT_BACKFILL_DAYS ('%s'): %v. Используется значение по умолчанию %d.", backfillStr, errParse, constants.MAX_BACKFILL_DAYS)
			cfg.SettlementBackfillDays = constants.MAX_BACKFILL_DAYS
		} else {
			cfg.SettlementBackfillDays = backfill
		}
	}

	cfg.OwnerChatID, err = strconv.ParseInt(os.Getenv("OWNER_CHAT_ID"), 10, 64)
	if err != nil {
		log.Printf("Предупреждение: не удалось прочитать OWNER_CHAT_ID: %v. Уведомления владельцу отключены.", err)
		cfg.OwnerChatID = 0
	}

	if cfg.DatabaseURL == "" {
		log.Println("Критическая ошибка: DATABASE_URL не установлен.")
	}
	if cfg.APISecretKey == "" {
		log.Println("Критическая ошибка: API_SECRET_KEY не установлен. Аутентификация API работать не будет.")
	}
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		log.Println("Предупреждение: RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET не установлены. Онлайн-оплата расчетов работать не будет.")
	}
	if cfg.TelegramToken == "" {
		log.Println("Предупреждение: TELEGRAM_APITOKEN не установлен. Уведомления владельцу отключены.")
	}

	log.Println("Конфигурация загружена.")
	return cfg, nil
}

// loadShare читает долю из переменной окружения с проверкой диапазона (0;1).
func loadShare(envName string, defaultValue float64) float64 {
	shareStr := os.Getenv(envName)
	if shareStr == "" {
		return defaultValue
	}
	share, err := strconv.ParseFloat(shareStr, 64)
	if err != nil || share <= 0 || share >= 1 {
		log.Printf("Предупреждение: некорректное значение для %s ('%s'): %v. Используется значение по умолчанию %.2f.", envName, shareStr, err, defaultValue)
		return defaultValue
	}
	return share
}
