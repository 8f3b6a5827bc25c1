package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/resilience"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/port"
)

// ============================================================
// LeadStore implementation — primary dashboard query
// ============================================================

// leadQueryPath translates filters into one PostgREST request path.
// Empty category sets and nil booleans contribute no predicate at all.
func leadQueryPath(f domain.DashboardFilters) string {
	f = f.Normalized()
	offset := (f.Page - 1) * f.Limit

	parts := []string{"select=*"}

	if f.DateStart != "" {
		parts = append(parts, param("data_criacao", "gte."+f.DateStart+"T00:00:00.000Z"))
	}
	if f.DateEnd != "" {
		parts = append(parts, param("data_criacao", "lte."+f.DateEnd+"T23:59:59.999Z"))
	}
	if len(f.Origem) > 0 {
		parts = append(parts, param("origem", inList(f.Origem)))
	}
	if len(f.Atividade) > 0 {
		parts = append(parts, param("atividade", inList(f.Atividade)))
	}
	if len(f.Solucao) > 0 {
		parts = append(parts, param("solucao", inList(f.Solucao)))
	}
	if f.Hubspot != nil {
		parts = append(parts, param("criado_no_hubspot", fmt.Sprintf("eq.%t", *f.Hubspot)))
	}
	if f.Followup != nil {
		parts = append(parts, param("followup_status", fmt.Sprintf("eq.%d", *f.Followup)))
	}
	if f.Interaction != nil {
		parts = append(parts, param("ultimo_tipo_msg", "eq."+*f.Interaction))
	}

	parts = append(parts,
		fmt.Sprintf("offset=%d", offset),
		fmt.Sprintf("limit=%d", f.Limit),
	)

	return "controle_leads?" + strings.Join(parts, "&")
}

// supabaseLead maps controle_leads columns. Nullable columns use pointers
// so absent values survive the decode.
type supabaseLead struct {
	ID              int64   `json:"id"`
	Telefone        int64   `json:"telefone"`
	Nome            *string `json:"nome"`
	Email           *string `json:"email"`
	Origem          *string `json:"origem"`
	Atividade       *string `json:"atividade"`
	Solucao         *string `json:"solucao"`
	Tamanho         *string `json:"tamanho"`
	DataCriacao     *string `json:"data_criacao"`
	Timestamp       *string `json:"timestamp"`
	UltimaMsg       *string `json:"ultima_msg"`
	FollowupStatus  *int    `json:"followup_status"`
	CriadoNoHubspot *bool   `json:"criado_no_hubspot"`
	NPSScore        *int    `json:"nps_score"`
	UltimoTipoMsg   *string `json:"ultimo_tipo_msg"`
}

// QueryLeads fetches one filtered page of leads plus the exact total count.
// Implements port.LeadStore.
func (c *Client) QueryLeads(ctx context.Context, filters domain.DashboardFilters) (*port.LeadPage, error) {
	ctx, span := tracer.Start(ctx, "Supabase.QueryLeads")
	defer span.End()

	var page *port.LeadPage

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, count, err := c.doGetWithCount(ctx, leadQueryPath(filters))
			if err != nil {
				return err
			}

			var rows []supabaseLead
			if len(body) > 0 {
				if err := json.Unmarshal(body, &rows); err != nil {
					return fmt.Errorf("failed to decode leads: %w", err)
				}
			}

			leads := make([]domain.Lead, 0, len(rows))
			for _, r := range rows {
				leads = append(leads, r.toDomain())
			}
			if count < 0 {
				count = len(leads)
			}
			page = &port.LeadPage{Leads: leads, TotalCount: count}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/leads", Err: err}
	}

	return page, nil
}

func (r supabaseLead) toDomain() domain.Lead {
	lead := domain.Lead{
		ID:            r.ID,
		Telefone:      r.Telefone,
		Nome:          deref(r.Nome),
		Email:         deref(r.Email),
		Origem:        deref(r.Origem),
		Atividade:     deref(r.Atividade),
		Solucao:       deref(r.Solucao),
		Tamanho:       deref(r.Tamanho),
		UltimaMsg:     deref(r.UltimaMsg),
		UltimoTipoMsg: deref(r.UltimoTipoMsg),
		NPSScore:      r.NPSScore,
		DataCriacao:   parseTimestamp(r.DataCriacao),
		Timestamp:     parseTimestamp(r.Timestamp),
	}
	if r.FollowupStatus != nil {
		lead.FollowupStatus = *r.FollowupStatus
	}
	if r.CriadoNoHubspot != nil {
		lead.CriadoNoHubspot = *r.CriadoNoHubspot
	}
	return lead
}
