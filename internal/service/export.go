package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/port"
)

var exportTracer = otel.Tracer("service/export")

var exportHeader = []string{
	"Nome", "Telefone", "Email", "Data Criação",
	"Follow-up", "HubSpot", "NPS", "Status Validação",
}

// ExportService renders the filtered lead page as a CSV download.
type ExportService struct {
	leads       port.LeadStore
	validations port.ValidationStore
	logger      *zap.Logger
}

// NewExportService creates the CSV export service.
func NewExportService(leads port.LeadStore, validations port.ValidationStore, logger *zap.Logger) *ExportService {
	return &ExportService{leads: leads, validations: validations, logger: logger}
}

// ExportCSV fetches the filtered page and renders it as CSV. Every field
// is wrapped in double quotes with internal quotes doubled, rows end in
// CRLF.
func (s *ExportService) ExportCSV(ctx context.Context, filters domain.DashboardFilters) ([]byte, error) {
	ctx, span := exportTracer.Start(ctx, "ExportService.ExportCSV")
	defer span.End()

	page, err := s.leads.QueryLeads(ctx, filters)
	if err != nil {
		return nil, err
	}

	telefones := make([]int64, 0, len(page.Leads))
	for _, l := range page.Leads {
		telefones = append(telefones, l.Telefone)
	}

	validations, err := s.validations.GetValidations(ctx, telefones)
	if err != nil {
		s.logger.Warn("export: validation lookup failed, all leads pendente",
			zap.Error(err),
		)
		validations = nil
	}

	var b strings.Builder
	writeCSVRow(&b, exportHeader)

	for _, l := range page.Leads {
		status := domain.ValidationPendente
		if flag, ok := validations[l.Telefone]; ok && flag != nil {
			if *flag {
				status = domain.ValidationValidada
			} else {
				status = domain.ValidationInvalida
			}
		}

		hubspot := "Não"
		if l.CriadoNoHubspot {
			hubspot = "Sim"
		}

		nps := ""
		if l.NPSScore != nil {
			nps = fmt.Sprintf("%d", *l.NPSScore)
		}

		dataCriacao := ""
		if l.DataCriacao != nil {
			dataCriacao = l.DataCriacao.Format(time.RFC3339)
		}

		writeCSVRow(&b, []string{
			l.Nome,
			fmt.Sprintf("%d", l.Telefone),
			l.Email,
			dataCriacao,
			fmt.Sprintf("%d", l.FollowupStatus),
			hubspot,
			nps,
			status,
		})
	}

	s.logger.Info("export: CSV rendered", zap.Int("leads", len(page.Leads)))
	return []byte(b.String()), nil
}

// writeCSVRow writes one CRLF-terminated row with every field quoted.
func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
}
