package api

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"dostavka/internal/config"
	"dostavka/internal/constants"
	"dostavka/internal/db"
	"dostavka/internal/notify"
	"dostavka/internal/payments"
	"dostavka/internal/settlement"
)

var cfg *config.Config

func setConfig(c *config.Config) {
	cfg = c
}

// jsonResponse - вспомогательная структура для стандартного ответа API
type jsonResponse struct {
	Status  string      `json:"status"` // "success" или "error"
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RecordCollectionRequest - структура запроса на запись сбора оплаты.
type RecordCollectionRequest struct {
	Amount  float64 `json:"amount"`
	Method  string  `json:"method"`
	OrderID int64   `json:"order_id,omitempty"`
}

// BulkSettleRequest - структура запроса на массовую финализацию.
type BulkSettleRequest struct {
	IDs []string `json:"ids"`
}

// VerifyPaymentRequest - подтверждение платежа от шлюза.
type VerifyPaymentRequest struct {
	GatewayOrderID   string  `json:"gateway_order_id"`
	GatewayPaymentID string  `json:"gateway_payment_id"`
	Signature        string  `json:"signature"`
	Amount           float64 `json:"amount"`
}

// RegisterDriverRequest - регистрация нового водителя.
type RegisterDriverRequest struct {
	ExternalID string `json:"external_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// InitiatePaymentResponse - данные для оплаты расчета через шлюз.
type InitiatePaymentResponse struct {
	SettlementID   int64   `json:"settlement_id"`
	GatewayOrderID string  `json:"gateway_order_id"`
	AmountDue      float64 `json:"amount_due"`
	Currency       string  `json:"currency"`
	PaymentLink    string  `json:"payment_link"`
	QRCodePNG      string  `json:"qr_code_png_base64"`
}

// --- Вспомогательные функции для JSON-ответов ---
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonResponse{Status: "error", Message: message})
}

func writeJSONSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jsonResponse{Status: "success", Message: message, Data: data})
}

// writeOperationError превращает ошибку ядра в HTTP-код по ее виду:
// валидация — 400, не найдено/не ожидает — 404, нарушение целостности — 403,
// остальное — 500 (инфраструктура; вся транзакция уже откатана).
func writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrUserNotFound), errors.Is(err, db.ErrDriverNotFound), errors.Is(err, db.ErrSettlementNotPending):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, payments.ErrSignatureMismatch), errors.Is(err, db.ErrAmountMismatch):
		writeJSONError(w, http.StatusForbidden, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
	}
}

// RecordCollection записывает сбор оплаты текущим водителем.
func RecordCollection(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		writeJSONError(w, http.StatusForbidden, "пользователь не найден в контексте")
		return
	}

	var req RecordCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный JSON в теле запроса")
		return
	}

	orderID := sql.NullInt64{Int64: req.OrderID, Valid: req.OrderID > 0}
	created, err := db.RecordCollection(user.ExternalID, req.Amount, req.Method, orderID)
	if err != nil {
		writeOperationError(w, err)
		return
	}

	// Запись могла попутно закрыть прошедшие дни в новые отчеты.
	go notify.SettlementsCreated(user.ExternalID, created)

	writeJSONSuccess(w, "Сбор записан.", map[string]interface{}{
		"created_settlements": created,
	})
}

// GetMySettlements возвращает сводку по расчетам текущего водителя.
func GetMySettlements(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		writeJSONError(w, http.StatusForbidden, "пользователь не найден в контексте")
		return
	}
	writeSummary(w, user.ExternalID)
}

// RollMySettlements закрывает прошедшие дни текущего водителя.
func RollMySettlements(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		writeJSONError(w, http.StatusForbidden, "пользователь не найден в контексте")
		return
	}

	created, err := db.RollSettlements(user.ExternalID)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	go notify.SettlementsCreated(user.ExternalID, created)

	writeJSONSuccess(w, "Расчеты закрыты.", map[string]interface{}{
		"created_settlements": created,
	})
}

// InitiateSettlementPayment создает заказ в платежном шлюзе для оплаты
// расчета и возвращает ссылку на оплату вместе с QR-кодом.
// Создание заказа не меняет агрегат водителя, поэтому выполняется вне
// какой-либо транзакции по нему.
func InitiateSettlementPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		writeJSONError(w, http.StatusForbidden, "пользователь не найден в контексте")
		return
	}

	settlementID, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный ID расчета")
		return
	}

	s, err := db.GetSettlementByID(user.ExternalID, settlementID)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	if s.Status != constants.SETTLEMENT_STATUS_PENDING {
		writeJSONError(w, http.StatusNotFound, "расчет уже финализирован")
		return
	}

	amountDue := settlement.AmountDue(s)
	if amountDue <= 0 {
		writeJSONError(w, http.StatusBadRequest, "по расчету нечего оплачивать")
		return
	}

	order, err := payments.CreateOrder(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, amountDue, constants.CURRENCY, s.ID)
	if err != nil {
		log.Printf("InitiateSettlementPayment: ошибка создания заказа в шлюзе для расчета #%d: %v", s.ID, err)
		writeJSONError(w, http.StatusBadGateway, "платежный шлюз недоступен")
		return
	}

	link := payments.PaymentLink(order.ID)
	// qrcode.Medium - уровень коррекции ошибок, 256 - размер QR-кода в пикселях.
	qrBytes, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		log.Printf("InitiateSettlementPayment: ошибка генерации QR-кода: %v", err)
		qrBytes = nil
	}

	writeJSONSuccess(w, "Заказ на оплату создан.", InitiatePaymentResponse{
		SettlementID:   s.ID,
		GatewayOrderID: order.ID,
		AmountDue:      amountDue,
		Currency:       constants.CURRENCY,
		PaymentLink:    link,
		QRCodePNG:      base64.StdEncoding.EncodeToString(qrBytes),
	})
}

// VerifySettlementPayment финализирует расчет по подтверждению платежа от
// шлюза: сначала локальная проверка подписи, затем сверка суммы и перевод
// отчета в settled c выравниванием баланса.
func VerifySettlementPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		writeJSONError(w, http.StatusForbidden, "пользователь не найден в контексте")
		return
	}

	settlementID, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный ID расчета")
		return
	}

	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный JSON в теле запроса")
		return
	}

	// Проверка подписи — до любых изменений состояния.
	if err := payments.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, cfg.RazorpayKeySecret); err != nil {
		writeOperationError(w, err)
		return
	}

	s, err := db.FinalizeSettlementViaGateway(user.ExternalID, settlementID, req.GatewayOrderID, req.GatewayPaymentID, req.Signature, req.Amount)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	go notify.SettlementSettled(user.ExternalID, s.ID, "через платежный шлюз")

	writeJSONSuccess(w, "Расчет финализирован.", s)
}

// RollDriverSettlements закрывает прошедшие дни указанного водителя
// (операторский маршрут).
func RollDriverSettlements(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")

	created, err := db.RollSettlements(externalID)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	go notify.SettlementsCreated(externalID, created)

	writeJSONSuccess(w, "Расчеты закрыты.", map[string]interface{}{
		"created_settlements": created,
	})
}

// RegisterDriver регистрирует нового водителя (операторский маршрут).
func RegisterDriver(w http.ResponseWriter, r *http.Request) {
	var req RegisterDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный JSON в теле запроса")
		return
	}
	if req.ExternalID == "" || req.FirstName == "" {
		writeJSONError(w, http.StatusBadRequest, "external_id и first_name обязательны")
		return
	}

	userID, err := db.RegisterDriver(
		req.ExternalID, req.FirstName,
		sql.NullString{String: req.LastName, Valid: req.LastName != ""},
		sql.NullString{String: req.Phone, Valid: req.Phone != ""},
	)
	if err != nil {
		writeOperationError(w, err)
		return
	}

	writeJSONSuccess(w, "Водитель зарегистрирован.", map[string]interface{}{
		"user_id":     userID,
		"external_id": req.ExternalID,
	})
}

// GetDriverSettlements возвращает сводку по расчетам указанного водителя.
func GetDriverSettlements(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")
	if externalID == "" {
		writeJSONError(w, http.StatusBadRequest, "externalID обязателен")
		return
	}
	writeSummary(w, externalID)
}

// SettleDriverPayment — ручная финализация одного расчета оператором.
func SettleDriverPayment(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")
	settlementID, err := parseIDParam(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный ID расчета")
		return
	}

	if err := db.SettlePayment(externalID, settlementID); err != nil {
		writeOperationError(w, err)
		return
	}
	go notify.SettlementSettled(externalID, settlementID, "вручную")

	writeJSONSuccess(w, "Расчет финализирован.", map[string]interface{}{
		"settlement_id": settlementID,
	})
}

// BulkSettleDriverPayments — массовая финализация расчетов оператором.
// Некорректные ID отфильтровываются и сообщаются отдельно, уже рассчитанные
// помечаются как пропущенные; ответ всегда структурный, по каждому ID.
func BulkSettleDriverPayments(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")

	var req BulkSettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный JSON в теле запроса")
		return
	}

	validIDs, invalidIDs, err := settlement.ParseSettlementIDs(req.IDs)
	if err != nil {
		writeOperationError(w, err)
		return
	}

	result, err := db.BulkSettlePayments(externalID, validIDs)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	result.Requested = len(req.IDs)
	result.Invalid = len(invalidIDs)
	result.InvalidIDs = invalidIDs

	writeJSONSuccess(w, "Массовая финализация выполнена.", result)
}

// RollAllSettlements запускает обход "рассчитать всех" вручную.
func RollAllSettlements(w http.ResponseWriter, r *http.Request) {
	driversRolled, created, err := db.RollAllDrivers()
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSONSuccess(w, "Обход выполнен.", map[string]interface{}{
		"drivers_rolled":      driversRolled,
		"settlements_created": created,
	})
}

// writeSummary отдает сводку по расчетам водителя.
func writeSummary(w http.ResponseWriter, externalID string) {
	summary, err := db.GetSettlementSummary(externalID)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSONSuccess(w, "", summary)
}

// parseIDParam читает числовой параметр {id} из URL.
func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
