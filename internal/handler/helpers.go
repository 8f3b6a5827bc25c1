package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseFilters reads the dashboard filter set from query parameters.
// Multi-value filters accept comma-separated lists; absent parameters
// contribute no predicate.
func parseFilters(r *http.Request) domain.DashboardFilters {
	q := r.URL.Query()
	f := domain.DashboardFilters{
		DateStart: q.Get("dateStart"),
		DateEnd:   q.Get("dateEnd"),
		Origem:    splitList(q.Get("origem")),
		Atividade: splitList(q.Get("atividade")),
		Solucao:   splitList(q.Get("solucao")),
	}

	if v := q.Get("hubspot"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Hubspot = &b
		}
	}
	if v := q.Get("followup"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Followup = &n
		}
	}
	if v := q.Get("interaction"); v == "ia" || v == "human" {
		f.Interaction = &v
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			f.Limit = n
		}
	}

	return f.Normalized()
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseTelefone reads the lead's business key from a URL parameter.
func parseTelefone(v string) (int64, error) {
	telefone, err := strconv.ParseInt(v, 10, 64)
	if err != nil || telefone <= 0 {
		return 0, &domain.ErrValidation{Field: "telefone", Message: "deve ser um número válido"}
	}
	return telefone, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var forbidden *domain.ErrForbidden
	var conflict *domain.ErrConflict
	var storage *domain.ErrStorage
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &storage):
		logger.Error("local storage failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError,
			"Falha no armazenamento local de autenticação. Limpe os dados de autenticação e tente novamente.")
	case errors.As(err, &external):
		logger.Error("external service failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Erro ao consultar o serviço de dados")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
