package core

import (
	"crypto/subtle"
	"net/http"

	"paygate/internal/types"
)

// APIKeyHeader carries the operator API key on /v1 requests.
const APIKeyHeader = "X-Api-Key"

// APIKeyMiddleware rejects requests whose X-Api-Key does not match the
// configured admin key. The comparison is constant-time.
//
//   - auth_token_missing: header absent or empty.
//   - auth_token_invalid: header present but wrong.
func (s *Server) APIKeyMiddleware(next http.Handler) http.Handler {
	expected := []byte(s.Config.Security.AdminAPIKey.Unmask())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(APIKeyHeader)
		if provided == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "API key is required", nil))
			return
		}
		if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			s.Logger.WarnContext(r.Context(), "api key rejected",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "API key is invalid", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
