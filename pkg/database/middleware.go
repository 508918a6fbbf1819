package database

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/auth"
)

// WithTenantContext creates middleware that sets up a yacht-scoped DB connection.
// It runs AFTER auth middleware and uses the yacht ID from JWT claims.
// The connection is automatically cleaned up after the handler returns.
func WithTenantContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			yachtID, err := auth.RequireYachtIDFromContext(r.Context())
			if err != nil {
				logger.Error("Missing yacht context in claims", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal_error", "Missing yacht context")
				return
			}

			scope, err := db.WithYacht(r.Context(), yachtID)
			if err != nil {
				logger.Error("Failed to acquire tenant connection",
					zap.String("yacht_id", yachtID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			next(w, r.WithContext(SetTenantScope(r.Context(), scope)))
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
