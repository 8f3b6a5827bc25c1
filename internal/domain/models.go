// Package domain defines the core business entities for the Lead Pulse
// dashboard. These models are independent of external services and represent
// the canonical data structures used throughout the service.
package domain

import "time"

// ============================================================
// Leads
// ============================================================

// Lead is one row of the lead intake table. Most columns are nullable
// upstream; absent strings decode to "" and absent numerics to nil.
type Lead struct {
	ID              int64      `json:"id"`
	Telefone        int64      `json:"telefone"`
	Nome            string     `json:"nome"`
	Email           string     `json:"email"`
	Origem          string     `json:"origem"`
	Atividade       string     `json:"atividade"`
	Solucao         string     `json:"solucao"`
	Tamanho         string     `json:"tamanho"`
	DataCriacao     *time.Time `json:"data_criacao"`
	Timestamp       *time.Time `json:"timestamp"`
	UltimaMsg       string     `json:"ultima_msg"`
	FollowupStatus  int        `json:"followup_status"`
	CriadoNoHubspot bool       `json:"criado_no_hubspot"`
	NPSScore        *int       `json:"nps_score"`
	UltimoTipoMsg   string     `json:"ultimo_tipo_msg"` // "ia" | "human"
}

// Validation status values derived from ConversationValidation.Validada.
const (
	ValidationPendente = "pendente"
	ValidationInvalida = "invalida"
	ValidationValidada = "validada"
)

// MissingStage returns the first qualification field the lead has not filled
// yet, or "Qualificado" when every stage is complete.
func (l *Lead) MissingStage() string {
	switch {
	case l.Origem == "":
		return "Origem"
	case l.Email == "":
		return "E-mail"
	case l.Atividade == "":
		return "Atividade"
	case l.Solucao == "":
		return "Solução"
	case l.Tamanho == "":
		return "Tamanho"
	}
	return "Qualificado"
}

// DashboardLead is a Lead enriched with the derived review fields shown in
// the pending-leads table.
type DashboardLead struct {
	Lead
	ValidacaoStatus string `json:"validacao_status"`
	MissingStage    string `json:"missing_stage"`
}

// ============================================================
// Conversation validation
// ============================================================

// ConversationValidation is a human reviewer's judgment on the automated
// chat transcript for a lead. At most one row exists per telefone; absence
// means the conversation is still pending review.
type ConversationValidation struct {
	ID          int64      `json:"id"`
	Telefone    int64      `json:"telefone"`
	Validada    *bool      `json:"validada"`
	Observacoes string     `json:"observacoes"`
	ValidadoPor string     `json:"validado_por"`
	ValidadoEm  *time.Time `json:"validado_em"`
}

// Status maps the tri-state Validada flag to a display status.
func (v *ConversationValidation) Status() string {
	if v == nil || v.Validada == nil {
		return ValidationPendente
	}
	if *v.Validada {
		return ValidationValidada
	}
	return ValidationInvalida
}

// ============================================================
// Chat messages
// ============================================================

// ChatMessage is one message of a lead's chat transcript. Read-only.
type ChatMessage struct {
	ID        int64      `json:"id"`
	Telefone  int64      `json:"telefone"`
	Mensagem  string     `json:"mensagem"`
	Nome      string     `json:"nome"`
	TipoMsg   string     `json:"tipo_msg"` // "ia" | "human"
	CreatedAt time.Time  `json:"created_at"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Transcript is the full chat history for one lead plus message counts.
type Transcript struct {
	Telefone      int64         `json:"telefone"`
	Messages      []ChatMessage `json:"messages"`
	TotalMessages int           `json:"totalMessages"`
	IAMessages    int           `json:"iaMessages"`
	HumanMessages int           `json:"humanMessages"`
}

// ============================================================
// Dashboard filters
// ============================================================

// DashboardFilters is the transient, client-held filter state. All fields
// are optional except pagination, which defaults to page=1 limit=100.
type DashboardFilters struct {
	DateStart   string   `json:"dateStart"` // "2006-01-02", inclusive from 00:00:00
	DateEnd     string   `json:"dateEnd"`   // "2006-01-02", inclusive until 23:59:59.999
	Origem      []string `json:"origem"`
	Atividade   []string `json:"atividade"`
	Solucao     []string `json:"solucao"`
	Hubspot     *bool    `json:"hubspot"`
	Followup    *int     `json:"followup"`
	Interaction *string  `json:"interaction"` // "ia" | "human"
	Page        int      `json:"page"`
	Limit       int      `json:"limit"`
}

// Normalized returns a copy with pagination defaults applied.
func (f DashboardFilters) Normalized() DashboardFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 100
	}
	return f
}

// ============================================================
// Dashboard aggregate
// ============================================================

// ScoreBucket is one bar of the rating distribution chart.
type ScoreBucket struct {
	Nota       int `json:"nota"`
	Quantidade int `json:"quantidade"`
}

// ValidationStatusCount is one slice of the validation status chart,
// carrying its fixed display color.
type ValidationStatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Color  string `json:"color"`
}

// FunnelStage is one step of the qualification funnel chart.
type FunnelStage struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Rate  float64 `json:"rate"`
}

// IAvsHuman splits leads by who sent their last message.
type IAvsHuman struct {
	IA    int `json:"ia"`
	Human int `json:"human"`
}

// Pagination describes the page window of the primary lead query.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
	StartItem   int  `json:"startItem"`
	EndItem     int  `json:"endItem"`
}

// DashboardData is the derived aggregate rendered by the frontend. It is
// never persisted and is recomputed whenever the filters change.
//
// All metrics are computed over the fetched page of leads, not the full
// filtered set: TotalLeads is the page-window lead count and is the
// denominator of QualificationRate. The exact full count lives only in
// Pagination.TotalCount.
type DashboardData struct {
	TotalLeads             int                     `json:"totalLeads"`
	QualifiedLeads         int                     `json:"qualifiedLeads"`
	QualificationRate      float64                 `json:"qualificationRate"`
	PendingFollowups       int                     `json:"pendingFollowups"`
	HubspotCreated         int                     `json:"hubspotCreated"`
	NPSScore               float64                 `json:"npsScore"`
	Satisfeitos            int                     `json:"satisfeitos"`
	Neutros                int                     `json:"neutros"`
	DistribuicaoAvaliacoes []ScoreBucket           `json:"distribuicaoAvaliacoes"`
	AvgQualificationTime   int                     `json:"avgQualificationTime"` // minutes
	TotalMessages          int                     `json:"totalMessages"`
	IAvsHuman              IAvsHuman               `json:"iaVsHuman"`
	FunnelData             []FunnelStage           `json:"funnelData"`
	ValidationStatusData   []ValidationStatusCount `json:"validationStatusData"`
	Leads                  []DashboardLead         `json:"leads"`
	Pagination             Pagination              `json:"pagination"`
}

// ============================================================
// Service metrics snapshot
// ============================================================

// ServiceMetrics is a point-in-time summary of service health counters,
// returned by the metrics snapshot endpoint.
type ServiceMetrics struct {
	TotalRequests      int64   `json:"totalRequests"`
	ErrorRate          float64 `json:"errorRate"`
	CacheHitRate       float64 `json:"cacheHitRate"`
	DashboardRefreshes int64   `json:"dashboardRefreshes"`
	ExternalErrors     int64   `json:"externalErrors"`
	Period             string  `json:"period"`
}
