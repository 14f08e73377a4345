package api

import (
	"github.com/go-chi/chi/v5"

	"dostavka/internal/config"
	"dostavka/internal/constants"
)

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Config *config.Config
}

// SetupRoutes настраивает все маршруты для API.
func SetupRoutes(r *chi.Mux, deps ApiDependencies) {
	setConfig(deps.Config)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Config.APISecretKey))

		// --- Маршруты для водителя ---
		r.Route("/api/driver", func(r chi.Router) {
			r.Use(RoleMiddleware(constants.ROLE_DRIVER))
			r.Post("/collections", RecordCollection)
			r.Get("/settlements", GetMySettlements)
			r.Post("/settlements/roll", RollMySettlements)
			r.Post("/settlements/{id}/initiate-payment", InitiateSettlementPayment)
			r.Post("/settlements/{id}/verify-payment", VerifySettlementPayment)
		})

		// --- Маршруты для админов/владельца ---
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(RoleMiddleware(constants.ROLE_OPERATOR))

			r.Post("/drivers", RegisterDriver)
			r.Get("/drivers/{externalID}/settlements", GetDriverSettlements)
			r.Post("/drivers/{externalID}/settlements/roll", RollDriverSettlements)
			r.Post("/drivers/{externalID}/settlements/{id}/settle", SettleDriverPayment)
			r.Post("/drivers/{externalID}/settlements/bulk-settle", BulkSettleDriverPayments)
			r.Post("/settlements/roll-all", RollAllSettlements)
			r.Get("/settlements/report", ExportSettlementsReport)
		})
	})
}
