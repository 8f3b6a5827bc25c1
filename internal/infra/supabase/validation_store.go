package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/resilience"
)

// ============================================================
// ValidationStore implementation — conversa_validacao table
// ============================================================

type validationRow struct {
	ID          int64   `json:"id"`
	Telefone    int64   `json:"telefone"`
	Validada    *bool   `json:"validada"`
	Observacoes *string `json:"observacoes"`
	ValidadoPor *string `json:"validado_por"`
	ValidadoEm  *string `json:"validado_em"`
}

func (r validationRow) toDomain() *domain.ConversationValidation {
	return &domain.ConversationValidation{
		ID:          r.ID,
		Telefone:    r.Telefone,
		Validada:    r.Validada,
		Observacoes: deref(r.Observacoes),
		ValidadoPor: deref(r.ValidadoPor),
		ValidadoEm:  parseTimestamp(r.ValidadoEm),
	}
}

// GetValidations batch-fetches validation flags for a set of telefones.
// Telefones without a row are absent from the result map.
func (c *Client) GetValidations(ctx context.Context, telefones []int64) (map[int64]*bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetValidations")
	defer span.End()

	if len(telefones) == 0 {
		return map[int64]*bool{}, nil
	}

	path := "conversa_validacao?select=telefone,validada&" + param("telefone", inListInt64(telefones))

	var result map[int64]*bool

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			var rows []validationRow
			if len(body) > 0 {
				if err := json.Unmarshal(body, &rows); err != nil {
					return fmt.Errorf("failed to decode validations: %w", err)
				}
			}

			result = make(map[int64]*bool, len(rows))
			for _, r := range rows {
				result[r.Telefone] = r.Validada
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/validations", Err: err}
	}

	return result, nil
}

// GetValidation fetches the review row for one telefone. Returns (nil, nil)
// when the conversation was never reviewed.
func (c *Client) GetValidation(ctx context.Context, telefone int64) (*domain.ConversationValidation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetValidation")
	defer span.End()

	path := fmt.Sprintf("conversa_validacao?telefone=eq.%d&limit=1", telefone)

	var validation *domain.ConversationValidation

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			if body == nil {
				return nil
			}

			var rows []validationRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode validation: %w", err)
			}
			if len(rows) == 0 {
				return nil
			}
			validation = rows[0].toDomain()
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/validations", Err: err}
	}

	return validation, nil
}

// InsertValidation creates the review row for a telefone.
func (c *Client) InsertValidation(ctx context.Context, v *domain.ConversationValidation) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertValidation")
	defer span.End()

	data := map[string]any{
		"telefone":     v.Telefone,
		"validada":     v.Validada,
		"observacoes":  v.Observacoes,
		"validado_por": v.ValidadoPor,
		"validado_em":  time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := c.doPost(ctx, "conversa_validacao", data); err != nil {
		return &domain.ErrExternalService{Service: "supabase/validations", Err: err}
	}
	return nil
}

// UpdateValidation overwrites the existing review row for v.Telefone.
func (c *Client) UpdateValidation(ctx context.Context, v *domain.ConversationValidation) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateValidation")
	defer span.End()

	path := fmt.Sprintf("conversa_validacao?telefone=eq.%d", v.Telefone)
	data := map[string]any{
		"validada":     v.Validada,
		"observacoes":  v.Observacoes,
		"validado_por": v.ValidadoPor,
		"validado_em":  time.Now().UTC().Format(time.RFC3339),
	}

	if err := c.doPatch(ctx, path, data); err != nil {
		return &domain.ErrExternalService{Service: "supabase/validations", Err: err}
	}
	return nil
}
