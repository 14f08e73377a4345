package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// API-адрес Razorpay
const razorpayAPIEndpoint = "https://api.razorpay.com/v1/orders"

// ErrSignatureMismatch — подпись подтверждения платежа не сошлась.
// Отклоняется без изменений состояния и логируется как возможная подделка.
var ErrSignatureMismatch = errors.New("подпись платежа не прошла проверку")

// Определяем структуры для запроса и ответа прямо здесь.

// OrderRequest - структура запроса на создание заказа в шлюзе.
type OrderRequest struct {
	Amount   int64             `json:"amount"` // В минорных единицах (пайсах).
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// OrderResponse - структура ответа от API Razorpay.
type OrderResponse struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// CreateOrder создает заказ в платежном шлюзе и возвращает его ID.
// Сумма принимается в основных единицах валюты и переводится в минорные.
// Вызывается ДО входа в транзакцию по агрегату водителя: создание заказа
// не меняет состояние водителя.
func CreateOrder(keyID, keySecret string, amountValue float64, currency string, settlementID int64) (*OrderResponse, error) {
	log.Printf("Создание заказа в шлюзе для расчета #%d на сумму %.2f %s", settlementID, amountValue, currency)

	receiptRef := fmt.Sprintf("settlement-%d-%s", settlementID, uuid.New().String()[:8])
	requestBody := OrderRequest{
		Amount:   int64(math.Round(amountValue * 100)),
		Currency: currency,
		Receipt:  receiptRef,
		Notes: map[string]string{
			"settlement_id": fmt.Sprintf("%d", settlementID),
		},
	}

	payload, err := json.Marshal(requestBody)
	if err != nil {
		log.Printf("Ошибка маршалинга запроса к Razorpay: %v", err)
		return nil, fmt.Errorf("ошибка подготовки запроса: %w", err)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(context.Background(), "POST", razorpayAPIEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		log.Printf("Ошибка создания HTTP-запроса к Razorpay: %v", err)
		return nil, fmt.Errorf("ошибка создания HTTP-запроса: %w", err)
	}

	req.SetBasicAuth(keyID, keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Razorpay-Idempotency", uuid.New().String())

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("Ошибка выполнения HTTP-запроса к Razorpay: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса к API Razorpay: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Ошибка чтения ответа от API Razorpay: %v", err)
		return nil, fmt.Errorf("ошибка чтения ответа API: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Printf("API Razorpay вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(responseBody))
		return nil, fmt.Errorf("ошибка API Razorpay, статус: %d", resp.StatusCode)
	}

	var orderResponse OrderResponse
	if err := json.Unmarshal(responseBody, &orderResponse); err != nil {
		log.Printf("Ошибка демаршалинга ответа от API Razorpay: %v", err)
		return nil, fmt.Errorf("ошибка обработки ответа API: %w", err)
	}

	if orderResponse.ID == "" {
		log.Println("Критическая ошибка: API Razorpay не вернул ID заказа.")
		return nil, fmt.Errorf("API не вернул ID заказа")
	}

	log.Printf("Успешно создан заказ в шлюзе: %s, статус: %s", orderResponse.ID, orderResponse.Status)
	return &orderResponse, nil
}

// ExpectedSignature вычисляет ожидаемую подпись подтверждения платежа:
// hex(HMAC-SHA256(orderID + "|" + paymentID)) на общем секрете.
func ExpectedSignature(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature проверяет подпись подтверждения платежа. Проверка локальная
// (HMAC), без обращения к сети. Сравнение — за постоянное время.
func VerifySignature(orderID, paymentID, signature, secret string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return fmt.Errorf("%w: пустые параметры подтверждения", ErrSignatureMismatch)
	}
	expected := ExpectedSignature(orderID, paymentID, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		log.Printf("ВНИМАНИЕ: подпись платежа не совпала для заказа %s (возможная попытка подделки).", orderID)
		return ErrSignatureMismatch
	}
	return nil
}

// PaymentLink возвращает ссылку на оплату заказа шлюза. Она же кодируется
// в QR-код в ответе на инициирование платежа.
func PaymentLink(orderID string) string {
	return fmt.Sprintf("https://rzp.io/i/%s", orderID)
}
