package supabase

import (
	"net/url"
	"strings"
	"testing"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
)

func TestLeadQueryPath_Defaults(t *testing.T) {
	got := leadQueryPath(domain.DashboardFilters{})
	want := "controle_leads?select=*&offset=0&limit=100"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestLeadQueryPath_DateRange(t *testing.T) {
	got := leadQueryPath(domain.DashboardFilters{DateStart: "2025-03-01", DateEnd: "2025-03-31"})

	wantStart := "data_criacao=" + url.QueryEscape("gte.2025-03-01T00:00:00.000Z")
	wantEnd := "data_criacao=" + url.QueryEscape("lte.2025-03-31T23:59:59.999Z")
	if !strings.Contains(got, wantStart) {
		t.Errorf("missing start predicate in %s", got)
	}
	if !strings.Contains(got, wantEnd) {
		t.Errorf("missing end predicate in %s", got)
	}
}

func TestLeadQueryPath_EmptySetsAddNoPredicate(t *testing.T) {
	got := leadQueryPath(domain.DashboardFilters{Origem: []string{}})
	if strings.Contains(got, "origem") {
		t.Errorf("empty set must contribute no predicate: %s", got)
	}
}

func TestLeadQueryPath_InListAndEquality(t *testing.T) {
	hubspot := true
	followup := 2
	interaction := "ia"
	got := leadQueryPath(domain.DashboardFilters{
		Origem:      []string{"instagram", "google ads"},
		Hubspot:     &hubspot,
		Followup:    &followup,
		Interaction: &interaction,
		Page:        2,
		Limit:       50,
	})

	wantIn := "origem=" + url.QueryEscape(`in.("instagram","google ads")`)
	if !strings.Contains(got, wantIn) {
		t.Errorf("missing in-list predicate in %s", got)
	}
	for _, want := range []string{
		"criado_no_hubspot=" + url.QueryEscape("eq.true"),
		"followup_status=" + url.QueryEscape("eq.2"),
		"ultimo_tipo_msg=" + url.QueryEscape("eq.ia"),
		"offset=50",
		"limit=50",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in %s", want, got)
		}
	}
}

func TestInList_EscapesQuotes(t *testing.T) {
	got := inList([]string{`va"lue`})
	if got != `in.("va\"lue")` {
		t.Errorf("unexpected operand: %s", got)
	}
}

func TestParseContentRangeTotal(t *testing.T) {
	cases := map[string]int{
		"0-99/1234": 1234,
		"*/0":       0,
		"0-0/*":     -1,
		"":          -1,
		"garbage":   -1,
	}
	for header, want := range cases {
		if got := parseContentRangeTotal(header); got != want {
			t.Errorf("%q: got %d, want %d", header, got, want)
		}
	}
}
