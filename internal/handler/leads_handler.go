package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/service"
)

// ============================================================
// Lead endpoints: CSV export, transcripts, validation review
// ============================================================

// exportHandler handles GET /v1/leads/export.
func exportHandler(svc *service.ExportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := parseFilters(r)

		csv, err := svc.ExportCSV(r.Context(), filters)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		filename := fmt.Sprintf("leads_%s.csv", time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		w.Write(csv)
	}
}

// chatHandler handles GET /v1/leads/{telefone}/chat.
func chatHandler(svc *service.ValidationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		telefone, err := parseTelefone(chi.URLParam(r, "telefone"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		transcript, err := svc.Transcript(r.Context(), telefone)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, transcript)
	}
}

// getValidationHandler handles GET /v1/leads/{telefone}/validation.
func getValidationHandler(svc *service.ValidationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		telefone, err := parseTelefone(chi.URLParam(r, "telefone"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		validation, err := svc.ValidationStatus(r.Context(), telefone)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			*domain.ConversationValidation
			Status string `json:"status"`
		}{validation, validation.Status()})
	}
}

type saveValidationRequest struct {
	Validada    bool   `json:"validada"`
	Observacoes string `json:"observacoes"`
}

// putValidationHandler handles PUT /v1/leads/{telefone}/validation. The
// reviewer is the authenticated user from the token.
func putValidationHandler(svc *service.ValidationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		telefone, err := parseTelefone(chi.URLParam(r, "telefone"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req saveValidationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "JSON inválido")
			return
		}

		reviewerID := UserIDFromContext(r.Context())
		if err := svc.SaveValidation(r.Context(), telefone, req.Validada, req.Observacoes, reviewerID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Validação registrada"})
	}
}
