package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/observability"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/resilience"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/port"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/service"
)

// ============================================================
// Hand-rolled fakes
// ============================================================

type fakeLeadStore struct {
	page  *port.LeadPage
	err   error
	calls int
}

func (f *fakeLeadStore) QueryLeads(ctx context.Context, filters domain.DashboardFilters) (*port.LeadPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

type fakeValidationStore struct {
	validations map[int64]*bool
	err         error

	single   *domain.ConversationValidation
	inserted *domain.ConversationValidation
	updated  *domain.ConversationValidation
}

func (f *fakeValidationStore) GetValidations(ctx context.Context, telefones []int64) (map[int64]*bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.validations, nil
}

func (f *fakeValidationStore) GetValidation(ctx context.Context, telefone int64) (*domain.ConversationValidation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.single, nil
}

func (f *fakeValidationStore) InsertValidation(ctx context.Context, v *domain.ConversationValidation) error {
	f.inserted = v
	return nil
}

func (f *fakeValidationStore) UpdateValidation(ctx context.Context, v *domain.ConversationValidation) error {
	f.updated = v
	return nil
}

type fakeMessageStore struct {
	count    int
	err      error
	messages []domain.ChatMessage
}

func (f *fakeMessageStore) CountMessages(ctx context.Context, telefones []int64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func (f *fakeMessageStore) ListMessages(ctx context.Context, telefone int64) ([]domain.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

type fakeCache struct {
	items map[string]*domain.DashboardData
	fresh bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]*domain.DashboardData{}, fresh: true}
}

func (c *fakeCache) Get(key string) (*domain.DashboardData, bool) {
	v, ok := c.items[key]
	return v, ok && c.fresh
}

func (c *fakeCache) GetStale(key string) (*domain.DashboardData, bool, bool) {
	v, ok := c.items[key]
	return v, c.fresh, ok
}

func (c *fakeCache) Set(key string, value *domain.DashboardData) { c.items[key] = value }
func (c *fakeCache) Delete(key string)                           { delete(c.items, key) }

func newDashboardService(leads *fakeLeadStore, validations *fakeValidationStore, messages *fakeMessageStore, cache *fakeCache) *service.DashboardService {
	return service.NewDashboardService(
		leads,
		validations,
		messages,
		cache,
		resilience.NewBulkhead(2),
		time.Millisecond,
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func timePtr(t time.Time) *time.Time { return &t }

// ============================================================
// Aggregation
// ============================================================

func TestGetDashboard_Aggregates(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	leads := &fakeLeadStore{page: &port.LeadPage{
		TotalCount: 2,
		Leads: []domain.Lead{
			{
				Telefone:        5511999000001,
				Nome:            "Ana",
				Origem:          "instagram",
				CriadoNoHubspot: true,
				FollowupStatus:  1,
				NPSScore:        intPtr(5),
				UltimoTipoMsg:   "ia",
				DataCriacao:     timePtr(created),
				Timestamp:       timePtr(created.Add(30 * time.Minute)),
			},
			{
				Telefone:      5511999000002,
				Nome:          "Bruno",
				NPSScore:      intPtr(3),
				UltimoTipoMsg: "human",
			},
		},
	}}
	validations := &fakeValidationStore{validations: map[int64]*bool{
		5511999000001: boolPtr(true),
		// 5511999000002 was never reviewed
	}}
	messages := &fakeMessageStore{count: 42}

	svc := newDashboardService(leads, validations, messages, newFakeCache())

	data, err := svc.GetDashboard(context.Background(), domain.DashboardFilters{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if data.TotalLeads != 2 {
		t.Errorf("expected 2 page leads, got %d", data.TotalLeads)
	}
	if data.QualifiedLeads != 1 {
		t.Errorf("expected 1 qualified lead, got %d", data.QualifiedLeads)
	}
	if data.QualificationRate != 50 {
		t.Errorf("expected rate 50, got %f", data.QualificationRate)
	}
	if data.PendingFollowups != 1 {
		t.Errorf("expected 1 pending followup, got %d", data.PendingFollowups)
	}
	if data.Satisfeitos != 1 || data.Neutros != 1 {
		t.Errorf("expected 1 satisfeito and 1 neutro, got %d/%d", data.Satisfeitos, data.Neutros)
	}
	if data.NPSScore != 50 {
		t.Errorf("expected NPS 50, got %f", data.NPSScore)
	}
	if data.AvgQualificationTime != 30 {
		t.Errorf("expected 30 minutes avg qualification time, got %d", data.AvgQualificationTime)
	}
	if data.TotalMessages != 42 {
		t.Errorf("expected 42 messages, got %d", data.TotalMessages)
	}
	if data.IAvsHuman.IA != 1 || data.IAvsHuman.Human != 1 {
		t.Errorf("unexpected ia/human split: %+v", data.IAvsHuman)
	}

	if len(data.DistribuicaoAvaliacoes) != 5 {
		t.Fatalf("expected exactly 5 score buckets, got %d", len(data.DistribuicaoAvaliacoes))
	}
	for i, b := range data.DistribuicaoAvaliacoes {
		if b.Nota != i+1 {
			t.Errorf("bucket %d has nota %d", i, b.Nota)
		}
	}
	if data.DistribuicaoAvaliacoes[4].Quantidade != 1 || data.DistribuicaoAvaliacoes[2].Quantidade != 1 {
		t.Errorf("unexpected bucket counts: %+v", data.DistribuicaoAvaliacoes)
	}

	if data.Leads[0].ValidacaoStatus != domain.ValidationValidada {
		t.Errorf("expected first lead validada, got %s", data.Leads[0].ValidacaoStatus)
	}
	if data.Leads[1].ValidacaoStatus != domain.ValidationPendente {
		t.Errorf("expected unreviewed lead pendente, got %s", data.Leads[1].ValidacaoStatus)
	}
}

func TestGetDashboard_ValidationLookupFailure_AllPendente(t *testing.T) {
	leads := &fakeLeadStore{page: &port.LeadPage{
		TotalCount: 2,
		Leads: []domain.Lead{
			{Telefone: 1},
			{Telefone: 2},
		},
	}}
	validations := &fakeValidationStore{err: errors.New("join failed")}
	messages := &fakeMessageStore{count: 5}

	svc := newDashboardService(leads, validations, messages, newFakeCache())

	data, err := svc.GetDashboard(context.Background(), domain.DashboardFilters{})
	if err != nil {
		t.Fatalf("validation failure must not fail the snapshot: %v", err)
	}
	for i, l := range data.Leads {
		if l.ValidacaoStatus != domain.ValidationPendente {
			t.Errorf("lead %d: expected pendente, got %s", i, l.ValidacaoStatus)
		}
	}
}

func TestGetDashboard_MessageCountFailure_Zero(t *testing.T) {
	leads := &fakeLeadStore{page: &port.LeadPage{TotalCount: 1, Leads: []domain.Lead{{Telefone: 1}}}}
	messages := &fakeMessageStore{err: errors.New("count failed")}

	svc := newDashboardService(leads, &fakeValidationStore{}, messages, newFakeCache())

	data, err := svc.GetDashboard(context.Background(), domain.DashboardFilters{})
	if err != nil {
		t.Fatalf("message count failure must not fail the snapshot: %v", err)
	}
	if data.TotalMessages != 0 {
		t.Errorf("expected 0 messages, got %d", data.TotalMessages)
	}
}

func TestGetDashboard_LeadQueryFailureAborts(t *testing.T) {
	leads := &fakeLeadStore{err: errors.New("primary query down")}

	svc := newDashboardService(leads, &fakeValidationStore{}, &fakeMessageStore{}, newFakeCache())

	if _, err := svc.GetDashboard(context.Background(), domain.DashboardFilters{}); err == nil {
		t.Fatal("expected the primary query error to abort the snapshot")
	}
}

func TestGetDashboard_EmptyPage(t *testing.T) {
	leads := &fakeLeadStore{page: &port.LeadPage{}}

	svc := newDashboardService(leads, &fakeValidationStore{}, &fakeMessageStore{}, newFakeCache())

	data, err := svc.GetDashboard(context.Background(), domain.DashboardFilters{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if data.QualificationRate != 0 || data.NPSScore != 0 || data.AvgQualificationTime != 0 {
		t.Errorf("expected zero rates on empty page, got %+v", data)
	}
	if len(data.DistribuicaoAvaliacoes) != 5 {
		t.Errorf("expected 5 zero-filled buckets, got %d", len(data.DistribuicaoAvaliacoes))
	}
}

// ============================================================
// Pagination
// ============================================================

func TestGetDashboard_Pagination(t *testing.T) {
	pageLeads := make([]domain.Lead, 50)
	for i := range pageLeads {
		pageLeads[i] = domain.Lead{Telefone: int64(i + 1)}
	}
	leads := &fakeLeadStore{page: &port.LeadPage{TotalCount: 250, Leads: pageLeads}}

	svc := newDashboardService(leads, &fakeValidationStore{}, &fakeMessageStore{}, newFakeCache())

	data, err := svc.GetDashboard(context.Background(), domain.DashboardFilters{Page: 3, Limit: 100})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	p := data.Pagination
	if p.TotalPages != 3 {
		t.Errorf("expected 3 pages for 250/100, got %d", p.TotalPages)
	}
	if p.TotalCount != 250 {
		t.Errorf("expected total 250, got %d", p.TotalCount)
	}
	if p.StartItem != 201 || p.EndItem != 250 {
		t.Errorf("expected items 201-250, got %d-%d", p.StartItem, p.EndItem)
	}
	if p.HasNextPage {
		t.Error("page 3 of 3 must not have a next page")
	}
	if !p.HasPrevPage {
		t.Error("page 3 must have a previous page")
	}
	if data.TotalLeads != 50 {
		t.Errorf("TotalLeads must be the page-window count, got %d", data.TotalLeads)
	}
}

// ============================================================
// Caching
// ============================================================

func TestGetDashboard_FreshCacheSkipsStores(t *testing.T) {
	leads := &fakeLeadStore{page: &port.LeadPage{TotalCount: 1, Leads: []domain.Lead{{Telefone: 1}}}}

	svc := newDashboardService(leads, &fakeValidationStore{}, &fakeMessageStore{}, newFakeCache())

	filters := domain.DashboardFilters{DateStart: "2025-03-01"}
	if _, err := svc.GetDashboard(context.Background(), filters); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := svc.GetDashboard(context.Background(), filters); err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if leads.calls != 1 {
		t.Errorf("expected a single store query, got %d", leads.calls)
	}
}

func TestGetDashboard_DifferentFiltersDifferentKeys(t *testing.T) {
	leads := &fakeLeadStore{page: &port.LeadPage{TotalCount: 1, Leads: []domain.Lead{{Telefone: 1}}}}

	svc := newDashboardService(leads, &fakeValidationStore{}, &fakeMessageStore{}, newFakeCache())

	if _, err := svc.GetDashboard(context.Background(), domain.DashboardFilters{DateStart: "2025-03-01"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetDashboard(context.Background(), domain.DashboardFilters{DateStart: "2025-04-01"}); err != nil {
		t.Fatal(err)
	}

	if leads.calls != 2 {
		t.Errorf("expected one query per filter set, got %d", leads.calls)
	}
}
