package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/collabforge/collabforge/internal/config"
	"github.com/collabforge/collabforge/internal/utils"
)

type contextKey string

const UserIDKey contextKey = "userID"

var jwtSecret = config.Envs.JWTSecret

// AuthMiddleware resolves the bearer cookie to an actor id and stores it in
// the request context. The core never sees the credential itself, only the
// resolved id.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		tokenStr, err := r.Cookie("token")
		if err != nil {
			unauthorized(w)
			return
		}

		token, err := jwt.Parse(tokenStr.Value, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(w)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(w)
			return
		}

		rawID, ok := claims["userId"].(string)
		if !ok || rawID == "" {
			unauthorized(w)
			return
		}

		userID, err := uuid.Parse(rawID)
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorID extracts the authenticated user's id from the request context.
func ActorID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	return id, ok
}

func unauthorized(w http.ResponseWriter) {
	utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
		Success: false,
		Message: "Unauthorized",
	})
}
