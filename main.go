package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"dostavka/internal/api"
	"dostavka/internal/config"
	"dostavka/internal/db"
	"dostavka/internal/notify"
	"dostavka/internal/settlement"
)

func main() {
	// --- Блок инициализации ---
	err := godotenv.Load()
	if err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	if err := db.InitDB(); err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать базу данных: %v", err)
	}
	defer db.CloseDB()

	db.ConfigureSettlement(cfg.BusinessLocation, settlement.Shares{
		DriverOnline: cfg.DriverOnlineShare,
		OwnerCash:    cfg.OwnerCashShare,
	}, cfg.SettlementBackfillDays)

	if err := notify.Init(cfg.TelegramToken, cfg.OwnerChatID); err != nil {
		// Уведомления — вспомогательный контур, без них работать можно.
		log.Printf("Предупреждение: уведомления владельцу недоступны: %v", err)
	}

	// --- Настройка роутера и Middleware ---
	apiRouter := chi.NewRouter()

	apiRouter.Use(middleware.Logger)
	apiRouter.Use(middleware.Recoverer)
	apiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Id", "X-Auth-Signature"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.SetupRoutes(apiRouter, api.ApiDependencies{Config: cfg})

	// Ежедневный обход расчетов. Проверяем каждый час: роллер идемпотентен,
	// лишние вызовы ничего не создают, а пропущенная полночь добирается
	// следующим тиком.
	go runSettlementSweep()

	log.Printf("Запуск HTTP-сервера на порту %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, apiRouter); err != nil {
		log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
	}
}

// runSettlementSweep периодически закрывает прошедшие дни у всех водителей.
func runSettlementSweep() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		drivers, created, err := db.RollAllDrivers()
		if err != nil {
			log.Printf("Обход расчетов завершился с ошибкой: %v", err)
			continue
		}
		if created > 0 {
			log.Printf("Обход расчетов: водителей %d, новых отчетов %d.", drivers, created)
		}
	}
}
