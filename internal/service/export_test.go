package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/port"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/service"
)

func TestExportCSV_HeaderAndRows(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	leads := &fakeLeadStore{page: &port.LeadPage{
		TotalCount: 1,
		Leads: []domain.Lead{{
			Telefone:        5511999000001,
			Nome:            "Ana Souza",
			Email:           "ana@example.com",
			DataCriacao:     timePtr(created),
			FollowupStatus:  2,
			CriadoNoHubspot: true,
			NPSScore:        intPtr(5),
		}},
	}}
	validations := &fakeValidationStore{validations: map[int64]*bool{
		5511999000001: boolPtr(true),
	}}
	svc := service.NewExportService(leads, validations, zap.NewNop())

	out, err := svc.ExportCSV(context.Background(), domain.DashboardFilters{})
	if err != nil {
		t.Fatalf("expected export to succeed, got %v", err)
	}

	lines := strings.Split(string(out), "\r\n")
	if len(lines) != 3 || lines[2] != "" {
		t.Fatalf("expected header + 1 row with CRLF endings, got %d segments", len(lines))
	}

	wantHeader := `"Nome","Telefone","Email","Data Criação","Follow-up","HubSpot","NPS","Status Validação"`
	if lines[0] != wantHeader {
		t.Errorf("unexpected header:\n got %s\nwant %s", lines[0], wantHeader)
	}

	row := lines[1]
	for _, want := range []string{`"Ana Souza"`, `"5511999000001"`, `"2"`, `"Sim"`, `"5"`, `"validada"`} {
		if !strings.Contains(row, want) {
			t.Errorf("row missing %s: %s", want, row)
		}
	}
}

func TestExportCSV_QuotesAreDoubled(t *testing.T) {
	leads := &fakeLeadStore{page: &port.LeadPage{
		TotalCount: 1,
		Leads:      []domain.Lead{{Telefone: 1, Nome: `He said "hi"`}},
	}}
	svc := service.NewExportService(leads, &fakeValidationStore{}, zap.NewNop())

	out, err := svc.ExportCSV(context.Background(), domain.DashboardFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"He said ""hi"""`) {
		t.Errorf("internal quotes must be doubled, got: %s", out)
	}
}

func TestExportCSV_NullNPSIsEmpty(t *testing.T) {
	leads := &fakeLeadStore{page: &port.LeadPage{
		TotalCount: 1,
		Leads:      []domain.Lead{{Telefone: 1, Nome: "Bruno"}},
	}}
	svc := service.NewExportService(leads, &fakeValidationStore{}, zap.NewNop())

	out, err := svc.ExportCSV(context.Background(), domain.DashboardFilters{})
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(string(out), "\r\n"), "\r\n")
	row := lines[len(lines)-1]
	fields := strings.Split(row, ",")
	if fields[6] != `""` {
		t.Errorf("expected empty quoted NPS field, got %s", fields[6])
	}
	if fields[5] != `"Não"` {
		t.Errorf("expected HubSpot Não, got %s", fields[5])
	}
	if fields[7] != `"pendente"` {
		t.Errorf("expected pendente without validation lookup hit, got %s", fields[7])
	}
}
