package rollout

import "strings"

// ---------------------------------------------------------------------------
// Lifecycle status
// ---------------------------------------------------------------------------

// ProjectStatus is the closed set of lifecycle states a rollout project can be in.
type ProjectStatus string

const (
	StatusNotStarted ProjectStatus = "NOT_STARTED"
	StatusInProgress ProjectStatus = "IN_PROGRESS"
	StatusBlocked    ProjectStatus = "BLOCKED"
	StatusDone       ProjectStatus = "DONE"
)

// IsValid returns true if the status is a known lifecycle state
func (s ProjectStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusBlocked, StatusDone:
		return true
	default:
		return false
	}
}

// IsTerminal returns true when the project requires no further work
func (s ProjectStatus) IsTerminal() bool {
	return s == StatusDone
}

// String returns the string representation of ProjectStatus
func (s ProjectStatus) String() string {
	return string(s)
}

// StatusSynonymVersion identifies the revision of the synonym tables below.
// The tables are a closed mapping: unanticipated labels fall through to
// IN_PROGRESS instead of silently growing the match lists.
const StatusSynonymVersion = 1

// Synonym tables for free-text tracker labels. Matching is substring based,
// checked in the order DONE, BLOCKED, NOT_STARTED; the first hit wins.
// Downstream scoring depends on this ordering, do not reorder.
var (
	doneSynonyms = []string{
		"concluído", "concluido", "complete", "finished", "closed",
		"arquivado", "finalizado", "encerrado", "done",
	}
	blockedSynonyms = []string{
		"travado", "impedimento", "blocked", "hold", "congelado",
		"jurídico", "financeiro", "aguardando cliente", "pausado",
	}
	notStartedSynonyms = []string{
		"to do", "novo", "backlog", "fila", "pendente", "not started",
	}
)

// NormalizeStatus maps an arbitrary tracker status label to a ProjectStatus.
// Empty input and labels not present in any synonym table default to
// IN_PROGRESS.
func NormalizeStatus(raw string) ProjectStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusInProgress
	}
	for _, kw := range doneSynonyms {
		if strings.Contains(s, kw) {
			return StatusDone
		}
	}
	for _, kw := range blockedSynonyms {
		if strings.Contains(s, kw) {
			return StatusBlocked
		}
	}
	for _, kw := range notStartedSynonyms {
		if strings.Contains(s, kw) {
			return StatusNotStarted
		}
	}
	return StatusInProgress
}

// ---------------------------------------------------------------------------
// Financial standing
// ---------------------------------------------------------------------------

// FinancialStanding is the closed set of billing states used by the risk score.
type FinancialStanding string

const (
	FinancialOnTime     FinancialStanding = "ON_TIME"
	FinancialPaid       FinancialStanding = "PAID"
	FinancialPending    FinancialStanding = "PENDING"
	FinancialOwing      FinancialStanding = "OWING"
	FinancialDelinquent FinancialStanding = "DELINQUENT"
	FinancialUnknown    FinancialStanding = "UNKNOWN"
)

var (
	paidSynonyms       = []string{"pago", "paid"}
	onTimeSynonyms     = []string{"em dia", "on time"}
	pendingSynonyms    = []string{"não paga", "nao paga", "pendente", "pending", "a faturar"}
	delinquentSynonyms = []string{"inadimplente", "delinquent"}
	owingSynonyms      = []string{"devendo", "owing", "em atraso"}
)

// NormalizeFinancialStanding maps a free-text billing label to a
// FinancialStanding. Unrecognized or empty labels map to UNKNOWN, which the
// risk score treats as a zero contribution.
func NormalizeFinancialStanding(raw string) FinancialStanding {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return FinancialUnknown
	}
	for _, kw := range paidSynonyms {
		if strings.Contains(s, kw) {
			return FinancialPaid
		}
	}
	for _, kw := range onTimeSynonyms {
		if strings.Contains(s, kw) {
			return FinancialOnTime
		}
	}
	for _, kw := range pendingSynonyms {
		if strings.Contains(s, kw) {
			return FinancialPending
		}
	}
	for _, kw := range delinquentSynonyms {
		if strings.Contains(s, kw) {
			return FinancialDelinquent
		}
	}
	for _, kw := range owingSynonyms {
		if strings.Contains(s, kw) {
			return FinancialOwing
		}
	}
	return FinancialUnknown
}
