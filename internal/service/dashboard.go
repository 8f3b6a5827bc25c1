package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/observability"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/resilience"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/port"
)

var dashTracer = otel.Tracer("service/dashboard")

// Fixed chart colors for the validation status slices.
const (
	colorPendente = "#F59E0B"
	colorInvalida = "#EF4444"
	colorValidada = "#10B981"
)

// DashboardService aggregates leads, validations and message counts into
// the dashboard snapshot. Snapshots are cached per filter fingerprint:
// fresh ones are served directly, stale ones are served while a background
// refresh recomputes them.
type DashboardService struct {
	leads       port.LeadStore
	validations port.ValidationStore
	messages    port.MessageStore
	cache       port.Cache[*domain.DashboardData]
	bulkhead    *resilience.Bulkhead
	group       singleflight.Group
	debounce    *Debouncer
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewDashboardService creates the aggregation service.
func NewDashboardService(
	leads port.LeadStore,
	validations port.ValidationStore,
	messages port.MessageStore,
	cache port.Cache[*domain.DashboardData],
	bulkhead *resilience.Bulkhead,
	refreshDebounce time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		leads:       leads,
		validations: validations,
		messages:    messages,
		cache:       cache,
		bulkhead:    bulkhead,
		debounce:    NewDebouncer(refreshDebounce),
		metrics:     metrics,
		logger:      logger,
	}
}

// ============================================================
// Entry point
// ============================================================

// GetDashboard returns the dashboard snapshot for the given filters. A
// fresh cached snapshot is returned directly; a stale one is returned
// immediately while a deduplicated background refresh recomputes it; a
// miss computes synchronously.
func (s *DashboardService) GetDashboard(ctx context.Context, filters domain.DashboardFilters) (*domain.DashboardData, error) {
	ctx, span := dashTracer.Start(ctx, "DashboardService.GetDashboard")
	defer span.End()

	filters = filters.Normalized()
	key := filterFingerprint(filters)
	span.SetAttributes(attribute.String("filters.fingerprint", key))

	if data, fresh, ok := s.cache.GetStale(key); ok {
		s.metrics.IncrCacheHit("dashboard")
		if !fresh {
			// Rapid filter changes trigger one refresh per request; the
			// debouncer keeps only the last of a burst.
			s.debounce.Trigger(func() { s.refreshInBackground(key, filters) })
		}
		return data, nil
	}
	s.metrics.IncrCacheMiss("dashboard")

	data, err := s.compute(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, data)
	s.metrics.IncrDashboardRefresh("request")
	return data, nil
}

// refreshInBackground recomputes one cache entry, deduplicating concurrent
// refreshes of the same fingerprint and capping overall concurrency with
// the bulkhead. The result is written only under its own key.
func (s *DashboardService) refreshInBackground(key string, filters domain.DashboardFilters) {
	go func() {
		_, _, _ = s.group.Do(key, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := s.bulkhead.Acquire(ctx); err != nil {
				s.logger.Warn("dashboard: background refresh skipped, bulkhead full",
					zap.String("key", key),
				)
				return nil, err
			}
			defer s.bulkhead.Release()

			data, err := s.compute(ctx, filters)
			if err != nil {
				s.logger.Warn("dashboard: background refresh failed",
					zap.String("key", key),
					zap.Error(err),
				)
				return nil, err
			}
			s.cache.Set(key, data)
			s.metrics.IncrDashboardRefresh("background")
			return nil, nil
		})
	}()
}

// filterFingerprint builds a structural cache key: identical filters map
// to the same key regardless of slice order.
func filterFingerprint(f domain.DashboardFilters) string {
	var b strings.Builder

	fmt.Fprintf(&b, "d=%s..%s", f.DateStart, f.DateEnd)
	for _, set := range [][]string{f.Origem, f.Atividade, f.Solucao} {
		sorted := append([]string(nil), set...)
		sort.Strings(sorted)
		fmt.Fprintf(&b, "|%s", strings.Join(sorted, ","))
	}
	if f.Hubspot != nil {
		fmt.Fprintf(&b, "|h=%t", *f.Hubspot)
	}
	if f.Followup != nil {
		fmt.Fprintf(&b, "|f=%d", *f.Followup)
	}
	if f.Interaction != nil {
		fmt.Fprintf(&b, "|i=%s", *f.Interaction)
	}
	fmt.Fprintf(&b, "|p=%d/%d", f.Page, f.Limit)

	return b.String()
}

// ============================================================
// Aggregation pipeline
// ============================================================

// compute runs the four aggregation steps for one filter set.
func (s *DashboardService) compute(ctx context.Context, filters domain.DashboardFilters) (*domain.DashboardData, error) {
	ctx, span := dashTracer.Start(ctx, "DashboardService.compute")
	defer span.End()
	start := time.Now()

	// Step 1: primary query. Any failure here aborts the whole snapshot.
	page, err := s.leads.QueryLeads(ctx, filters)
	if err != nil {
		s.metrics.IncrExternalError("supabase/leads")
		return nil, err
	}

	telefones := distinctTelefones(page.Leads)

	// Steps 2 and 3 run concurrently and are both non-fatal: a failed
	// validation join degrades every lead to pendente, a failed count
	// degrades to zero messages.
	var (
		validations  map[int64]*bool
		messageCount int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.validations.GetValidations(gctx, telefones)
		if err != nil {
			s.metrics.IncrExternalError("supabase/validations")
			s.logger.Warn("dashboard: validation join failed, all leads pendente",
				zap.Error(err),
			)
			return nil
		}
		validations = v
		return nil
	})
	g.Go(func() error {
		n, err := s.messages.CountMessages(gctx, telefones)
		if err != nil {
			s.metrics.IncrExternalError("supabase/chat")
			s.logger.Warn("dashboard: message count failed, using zero",
				zap.Error(err),
			)
			return nil
		}
		messageCount = n
		return nil
	})
	_ = g.Wait() // both goroutines swallow their errors

	// Step 4: derived metrics over the fetched page.
	data := aggregate(page, filters, validations, messageCount)

	s.metrics.RecordRequestDuration("dashboard_compute", time.Since(start))
	s.logger.Debug("dashboard: snapshot computed",
		zap.Int("page_leads", len(page.Leads)),
		zap.Int("total_count", page.TotalCount),
		zap.Duration("took", time.Since(start)),
	)
	return data, nil
}

func distinctTelefones(leads []domain.Lead) []int64 {
	seen := make(map[int64]struct{}, len(leads))
	out := make([]int64, 0, len(leads))
	for _, l := range leads {
		if _, ok := seen[l.Telefone]; ok {
			continue
		}
		seen[l.Telefone] = struct{}{}
		out = append(out, l.Telefone)
	}
	return out
}

// aggregate derives every dashboard metric from one page of leads. All
// rates use the page-local lead count as denominator; the exact full count
// appears only in the pagination block.
func aggregate(page *port.LeadPage, filters domain.DashboardFilters, validations map[int64]*bool, messageCount int) *domain.DashboardData {
	leads := page.Leads
	total := len(leads)

	var (
		qualified   int
		pending     int
		hubspot     int
		satisfeitos int
		neutros     int
		ia          int
		human       int
		qualMinutes float64
		qualSamples int
		scoreCounts [5]int
		valPendente int
		valInvalida int
		valValidada int
	)

	dashboardLeads := make([]domain.DashboardLead, 0, total)

	for i := range leads {
		l := leads[i]

		if l.CriadoNoHubspot {
			hubspot++
			qualified++
			if l.DataCriacao != nil && l.Timestamp != nil {
				qualMinutes += l.Timestamp.Sub(*l.DataCriacao).Minutes()
				qualSamples++
			}
		}
		if l.FollowupStatus >= 1 {
			pending++
		}
		if l.NPSScore != nil {
			score := *l.NPSScore
			if score >= 1 && score <= 5 {
				scoreCounts[score-1]++
			}
			if score == 5 {
				satisfeitos++
			} else if score >= 1 && score <= 4 {
				neutros++
			}
		}
		switch l.UltimoTipoMsg {
		case "ia":
			ia++
		case "human":
			human++
		}

		status := domain.ValidationPendente
		if flag, ok := validations[l.Telefone]; ok && flag != nil {
			if *flag {
				status = domain.ValidationValidada
			} else {
				status = domain.ValidationInvalida
			}
		}
		switch status {
		case domain.ValidationValidada:
			valValidada++
		case domain.ValidationInvalida:
			valInvalida++
		default:
			valPendente++
		}

		dashboardLeads = append(dashboardLeads, domain.DashboardLead{
			Lead:            l,
			ValidacaoStatus: status,
			MissingStage:    l.MissingStage(),
		})
	}

	qualificationRate := float64(0)
	if total > 0 {
		qualificationRate = float64(qualified) / float64(total) * 100
	}

	npsScore := float64(0)
	if satisfeitos+neutros > 0 {
		npsScore = float64(satisfeitos) / float64(satisfeitos+neutros) * 100
	}

	avgQualTime := 0
	if qualSamples > 0 {
		avgQualTime = int(math.Round(qualMinutes / float64(qualSamples)))
	}

	buckets := make([]domain.ScoreBucket, 5)
	for i := 0; i < 5; i++ {
		buckets[i] = domain.ScoreBucket{Nota: i + 1, Quantidade: scoreCounts[i]}
	}

	return &domain.DashboardData{
		TotalLeads:        total,
		QualifiedLeads:    qualified,
		QualificationRate: qualificationRate,
		PendingFollowups:  pending,
		HubspotCreated:    hubspot,
		NPSScore:          npsScore,
		Satisfeitos:       satisfeitos,
		Neutros:           neutros,

		DistribuicaoAvaliacoes: buckets,
		AvgQualificationTime:   avgQualTime,
		TotalMessages:          messageCount,
		IAvsHuman:              domain.IAvsHuman{IA: ia, Human: human},
		FunnelData:             funnelData(leads),
		ValidationStatusData: []domain.ValidationStatusCount{
			{Status: "Pendente", Count: valPendente, Color: colorPendente},
			{Status: "Inválida", Count: valInvalida, Color: colorInvalida},
			{Status: "Válida", Count: valValidada, Color: colorValidada},
		},
		Leads:      dashboardLeads,
		Pagination: paginate(filters, page.TotalCount, total),
	}
}

// funnelData counts how many page leads completed each qualification step.
func funnelData(leads []domain.Lead) []domain.FunnelStage {
	total := len(leads)
	stages := []struct {
		name string
		done func(domain.Lead) bool
	}{
		{"Leads", func(domain.Lead) bool { return true }},
		{"Origem", func(l domain.Lead) bool { return l.Origem != "" }},
		{"E-mail", func(l domain.Lead) bool { return l.Email != "" }},
		{"Atividade", func(l domain.Lead) bool { return l.Atividade != "" }},
		{"Solução", func(l domain.Lead) bool { return l.Solucao != "" }},
		{"Qualificado", func(l domain.Lead) bool { return l.CriadoNoHubspot }},
	}

	out := make([]domain.FunnelStage, 0, len(stages))
	for _, stage := range stages {
		count := 0
		for _, l := range leads {
			if stage.done(l) {
				count++
			}
		}
		rate := float64(0)
		if total > 0 {
			rate = float64(count) / float64(total) * 100
		}
		out = append(out, domain.FunnelStage{Stage: stage.name, Count: count, Rate: rate})
	}
	return out
}

// paginate builds the pagination block from the exact full count.
func paginate(filters domain.DashboardFilters, totalCount, pageLen int) domain.Pagination {
	totalPages := 0
	if filters.Limit > 0 {
		totalPages = int(math.Ceil(float64(totalCount) / float64(filters.Limit)))
	}

	startItem := 0
	endItem := 0
	if pageLen > 0 {
		startItem = (filters.Page-1)*filters.Limit + 1
		endItem = startItem + pageLen - 1
	}

	return domain.Pagination{
		CurrentPage: filters.Page,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		HasNextPage: filters.Page < totalPages,
		HasPrevPage: filters.Page > 1,
		StartItem:   startItem,
		EndItem:     endItem,
	}
}
