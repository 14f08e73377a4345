// Файл: internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"dostavka/internal/constants"
	"dostavka/internal/settlement"
)

var DB *sql.DB // Глобальная переменная для хранения подключения к БД

// Параметры движка расчетов. Переопределяются из конфигурации при старте.
var (
	businessLoc  = time.UTC
	shares       = settlement.DefaultShares
	backfillDays = constants.MAX_BACKFILL_DAYS
)

// ConfigureSettlement задает часовой пояс бизнеса, доли распределения и
// размер окна добора. Должна вызываться один раз при старте приложения.
func ConfigureSettlement(loc *time.Location, sh settlement.Shares, maxBackfillDays int) {
	if loc != nil {
		businessLoc = loc
	}
	shares = sh
	if maxBackfillDays > 0 {
		backfillDays = maxBackfillDays
	}
}

// InitDB инициализирует соединение с базой данных и выполняет миграции.
func InitDB() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL не установлена")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	// Set connection pool settings
	DB.SetMaxOpenConns(50)
	DB.SetMaxIdleConns(20)
	DB.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("ошибка проверки соединения с базой данных: %v", err)
	}

	log.Println("Успешное подключение к базе данных.")

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции для создания таблиц: %v", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			log.Printf("Откат транзакции создания таблиц из-за ошибки: %v", err)
			tx.Rollback()
		}
	}()

	createTablesSQL := `
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            external_id TEXT UNIQUE NOT NULL,
            role TEXT NOT NULL,
            first_name VARCHAR(100),
            last_name VARCHAR(100),
            phone VARCHAR(20),
            created_at TIMESTAMPTZ,
            updated_at TIMESTAMPTZ
        );
        CREATE TABLE IF NOT EXISTS drivers (
            user_id BIGINT PRIMARY KEY REFERENCES users(id),
            earnings DOUBLE PRECISION NOT NULL DEFAULT 0,
            cash_collected_total DOUBLE PRECISION NOT NULL DEFAULT 0,
            online_collected_total DOUBLE PRECISION NOT NULL DEFAULT 0,
            day_cash_collected DOUBLE PRECISION NOT NULL DEFAULT 0,
            day_online_collected DOUBLE PRECISION NOT NULL DEFAULT 0,
            day_driver_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
            day_owner_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
            day_updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            last_settlement_date DATE,
            created_at TIMESTAMPTZ,
            updated_at TIMESTAMPTZ
        );
        CREATE TABLE IF NOT EXISTS payment_settlements (
            id SERIAL PRIMARY KEY,
            driver_user_id BIGINT NOT NULL REFERENCES drivers(user_id),
            report_date DATE NOT NULL,
            cash_collected DOUBLE PRECISION NOT NULL DEFAULT 0,
            online_collected DOUBLE PRECISION NOT NULL DEFAULT 0,
            driver_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
            owner_earned DOUBLE PRECISION NOT NULL DEFAULT 0,
            driver_to_owner DOUBLE PRECISION NOT NULL DEFAULT 0,
            owner_to_driver DOUBLE PRECISION NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            settled_at TIMESTAMPTZ,
            gateway_order_id TEXT,
            gateway_payment_id TEXT,
            gateway_signature TEXT,
            created_at TIMESTAMPTZ,
            updated_at TIMESTAMPTZ,
            UNIQUE (driver_user_id, report_date)
        );
        CREATE TABLE IF NOT EXISTS collected_payments (
            id SERIAL PRIMARY KEY,
            driver_user_id BIGINT NOT NULL REFERENCES drivers(user_id),
            amount DOUBLE PRECISION NOT NULL,
            method TEXT NOT NULL,
            order_id BIGINT,
            settlement_id BIGINT REFERENCES payment_settlements(id),
            collected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_collected_payments_driver ON collected_payments(driver_user_id, collected_at);
        CREATE INDEX IF NOT EXISTS idx_payment_settlements_status ON payment_settlements(driver_user_id, status);
    `
	if _, err = tx.Exec(createTablesSQL); err != nil {
		return fmt.Errorf("ошибка создания таблиц: %v", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка коммита транзакции создания таблиц: %v", err)
	}

	log.Println("Миграции выполнены.")
	return nil
}

// CloseDB закрывает соединение с базой данных.
func CloseDB() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			log.Printf("Ошибка закрытия соединения с БД: %v", err)
		}
	}
}
