package domain_test

import (
	"testing"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
)

func TestMissingStage_Order(t *testing.T) {
	cases := []struct {
		name string
		lead domain.Lead
		want string
	}{
		{"empty lead", domain.Lead{}, "Origem"},
		{"origem only", domain.Lead{Origem: "instagram"}, "E-mail"},
		{"no atividade", domain.Lead{Origem: "instagram", Email: "a@b.com"}, "Atividade"},
		{"no solucao", domain.Lead{Origem: "instagram", Email: "a@b.com", Atividade: "varejo"}, "Solução"},
		{"no tamanho", domain.Lead{Origem: "instagram", Email: "a@b.com", Atividade: "varejo", Solucao: "erp"}, "Tamanho"},
		{"complete", domain.Lead{Origem: "instagram", Email: "a@b.com", Atividade: "varejo", Solucao: "erp", Tamanho: "pequena"}, "Qualificado"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.lead.MissingStage(); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestValidationStatus_TriState(t *testing.T) {
	var nilValidation *domain.ConversationValidation
	if got := nilValidation.Status(); got != domain.ValidationPendente {
		t.Errorf("nil validation: got %s", got)
	}

	unreviewed := &domain.ConversationValidation{Telefone: 5511999999999}
	if got := unreviewed.Status(); got != domain.ValidationPendente {
		t.Errorf("unreviewed: got %s", got)
	}

	valid := true
	if got := (&domain.ConversationValidation{Validada: &valid}).Status(); got != domain.ValidationValidada {
		t.Errorf("validated: got %s", got)
	}

	invalid := false
	if got := (&domain.ConversationValidation{Validada: &invalid}).Status(); got != domain.ValidationInvalida {
		t.Errorf("invalidated: got %s", got)
	}
}

func TestFiltersNormalized_Defaults(t *testing.T) {
	got := domain.DashboardFilters{}.Normalized()
	if got.Page != 1 || got.Limit != 100 {
		t.Errorf("got page=%d limit=%d, want page=1 limit=100", got.Page, got.Limit)
	}

	kept := domain.DashboardFilters{Page: 3, Limit: 25}.Normalized()
	if kept.Page != 3 || kept.Limit != 25 {
		t.Errorf("explicit pagination must survive: got page=%d limit=%d", kept.Page, kept.Limit)
	}
}

func TestSessionExpired(t *testing.T) {
	var nilSession *domain.Session
	if nilSession.Expired() {
		t.Error("nil session must not count as expired")
	}

	zero := &domain.Session{}
	if zero.Expired() {
		t.Error("zero expiry must not count as expired")
	}
}
