// Файл: internal/api/middleware.go
package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/http"

	"dostavka/internal/db"
	"dostavka/internal/models"
	"dostavka/internal/utils"
)

// UserContextKey - ключ для сохранения данных пользователя в контексте запроса.
var UserContextKey = &contextKey{"User"}

type contextKey struct {
	name string
}

// AuthMiddleware проверяет заголовки X-Auth-Id и X-Auth-Signature.
// Подпись — hex(HMAC-SHA256(externalID)) на общем секрете: внешняя система
// аутентификации подтверждает личность вызывающего, ядро ей доверяет.
func AuthMiddleware(secretKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			externalID := r.Header.Get("X-Auth-Id")
			signature := r.Header.Get("X-Auth-Signature")
			if externalID == "" || signature == "" {
				http.Error(w, "Unauthorized: Missing auth headers", http.StatusUnauthorized)
				return
			}

			if !validateAuthSignature(externalID, signature, secretKey) {
				log.Printf("AuthMiddleware: неверная подпись для '%s'.", externalID)
				http.Error(w, "Unauthorized: Invalid signature", http.StatusUnauthorized)
				return
			}

			// Получаем полную информацию о пользователе из нашей БД
			user, err := db.GetUserByExternalID(externalID)
			if err != nil {
				log.Printf("AuthMiddleware: пользователь '%s' не найден в БД: %v", externalID, err)
				http.Error(w, "Unauthorized: User not found", http.StatusUnauthorized)
				return
			}

			// Сохраняем пользователя в контексте запроса для последующих обработчиков
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RoleMiddleware проверяет, соответствует ли роль пользователя требуемой.
func RoleMiddleware(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := r.Context().Value(UserContextKey).(models.User)
			if !ok {
				http.Error(w, "Forbidden: User data not found in context", http.StatusForbidden)
				return
			}

			if !utils.IsRoleOrHigher(user.Role, requiredRole) {
				http.Error(w, "Forbidden: Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validateAuthSignature сверяет подпись внешнего идентификатора за
// постоянное время.
func validateAuthSignature(externalID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(externalID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// userFromContext достает пользователя, сохраненного AuthMiddleware.
func userFromContext(r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	return user, ok
}
