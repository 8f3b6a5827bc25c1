package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/service"
)

// ============================================================
// Auth endpoints
// ============================================================

type sessionStatusResponse struct {
	Guard   domain.GuardStatusResponse `json:"guard"`
	Session *domain.SessionResponse    `json:"session,omitempty"`
}

// loginHandler handles POST /v1/auth/login.
func loginHandler(sessions *service.SessionStore, guard *service.AccessGuard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "JSON inválido")
			return
		}

		session, err := sessions.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// The guard re-resolves via its subscription; resolve synchronously
		// here so the response already carries the profile.
		guard.Initialize(r.Context())

		writeJSON(w, http.StatusOK, domain.SessionResponse{
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
			ExpiresAt:    session.ExpiresAt,
			User:         &session.User,
			Profile:      guard.Profile(),
		})
	}
}

// signupHandler handles POST /v1/auth/signup.
func signupHandler(sessions *service.SessionStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SignUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "JSON inválido")
			return
		}

		user, err := sessions.SignUp(r.Context(), req.Email, req.Password, req.Nome)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("auth: signup accepted", zap.String("user_id", user.ID))
		writeJSON(w, http.StatusCreated, domain.SuccessResponse{
			Message: "Cadastro criado. Verifique seu e-mail para confirmar.",
		})
	}
}

// logoutHandler handles POST /v1/auth/logout.
func logoutHandler(sessions *service.SessionStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.SignOut(r.Context()); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Sessão encerrada"})
	}
}

// sessionHandler handles GET /v1/auth/session: the guard snapshot plus the
// current session, if any.
func sessionHandler(sessions *service.SessionStore, guard *service.AccessGuard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessions.CurrentSession(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp := sessionStatusResponse{Guard: guard.Status(false)}
		if session != nil {
			resp.Session = &domain.SessionResponse{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				ExpiresAt:    session.ExpiresAt,
				User:         &session.User,
				Profile:      guard.Profile(),
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// retryHandler handles POST /v1/auth/retry: clears a guard error and
// re-runs initialization.
func retryHandler(guard *service.AccessGuard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guard.Retry(r.Context())
		writeJSON(w, http.StatusOK, sessionStatusResponse{Guard: guard.Status(false)})
	}
}

// clearHandler handles POST /v1/auth/clear: wipes persisted auth data.
// This is the recovery path when local storage is corrupt.
func clearHandler(sessions *service.SessionStore, guard *service.AccessGuard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.ClearAuthData(); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		guard.Initialize(r.Context())
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Dados de autenticação limpos"})
	}
}
