package rollout

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/shared"
)

var (
	ErrProjectInvalidName       = errors.New("rollout: project name is required")
	ErrProjectInvalidTaskRef    = errors.New("rollout: external task reference is required")
	ErrProjectFinishBeforeStart = errors.New("rollout: effective finish precedes effective start")
	ErrProjectNegativeIdleDays  = errors.New("rollout: idle days cannot be negative")
)

// DefaultContractDays is the contractual rollout duration assumed when a
// project carries no explicit contract.
const DefaultContractDays = 90

// StoreClass is the weight class of a store within its account group.
// A Matriz (parent) site counts more toward volume and load than a
// Filial (child) site.
type StoreClass string

const (
	ClassMatriz StoreClass = "Matriz"
	ClassFilial StoreClass = "Filial"
)

// IsValid returns true if the class is known
func (c StoreClass) IsValid() bool {
	return c == ClassMatriz || c == ClassFilial
}

// Project is a unit of store-rollout work tracked end to end. It mirrors one
// parent task in the external tracker plus the manual overrides applied by
// the operations team.
type Project struct {
	shared.BaseEntity

	// Tracker identity
	TaskRef    string // external tracker task id
	StoreCode  string // human-facing store code, e.g. F0H-533
	Name       string
	TrackerURL string

	// Status
	RawStatus string // label as reported by the tracker
	Status    ProjectStatus

	// Reported instants (tracker)
	TrackerCreatedAt *time.Time
	ReportedStartAt  *time.Time
	ReportedClosedAt *time.Time

	// Manual overrides
	ManualFinishedAt *time.Time
	ManualGoLiveDate *time.Time

	// Contract & money
	ContractDays int
	MonthlyValue decimal.Decimal // recurring revenue once live
	SetupValue   decimal.Decimal // one-time implementation fee
	Financial    FinancialStanding
	FinancialRaw string

	// Quality
	HadRework            bool
	ReworkType           string
	DeliveredWithQuality bool

	// Activity
	IdleDays int // days since the tracker last recorded an update

	// Ownership & grouping
	Operator string
	Network  string
	Class    StoreClass
	ParentID *uuid.UUID

	ERP  string
	CRM  string
	CNPJ string
}

// NewProject creates a project for a tracker task reference.
func NewProject(taskRef, name string) (*Project, error) {
	if taskRef == "" {
		return nil, ErrProjectInvalidTaskRef
	}
	if name == "" {
		return nil, ErrProjectInvalidName
	}
	return &Project{
		BaseEntity:           shared.NewBaseEntity(),
		TaskRef:              taskRef,
		Name:                 name,
		Status:               StatusInProgress,
		ContractDays:         DefaultContractDays,
		MonthlyValue:         decimal.Zero,
		SetupValue:           decimal.Zero,
		Financial:            FinancialUnknown,
		DeliveredWithQuality: true,
		Class:                ClassFilial,
	}, nil
}

// Validate checks the project invariants.
func (p *Project) Validate() error {
	if p.IdleDays < 0 {
		return ErrProjectNegativeIdleDays
	}
	start := p.EffectiveStartedAt()
	finish := p.EffectiveFinishedAt()
	if start != nil && finish != nil && finish.Before(*start) {
		return ErrProjectFinishBeforeStart
	}
	return nil
}

// EffectiveStartedAt resolves the instant work effectively began: the
// reported start when present, otherwise the tracker creation instant.
func (p *Project) EffectiveStartedAt() *time.Time {
	if p.ReportedStartAt != nil {
		return p.ReportedStartAt
	}
	return p.TrackerCreatedAt
}

// EffectiveFinishedAt resolves the completion instant. A manual finish date
// always wins over anything the tracker reports, even a later closure.
func (p *Project) EffectiveFinishedAt() *time.Time {
	if p.ManualFinishedAt != nil {
		return p.ManualFinishedAt
	}
	return p.ReportedClosedAt
}

// IsCompleted reports whether the project counts as delivered: either the
// normalized lifecycle reached DONE or an explicit manual finish was set.
func (p *Project) IsCompleted() bool {
	return p.Status == StatusDone || p.ManualFinishedAt != nil
}

// IsInFlight reports whether the project contributes to work-in-progress.
func (p *Project) IsInFlight() bool {
	return p.Status == StatusInProgress && p.ManualFinishedAt == nil
}

// EffectiveContractDays returns the contractual duration, defaulting when unset.
func (p *Project) EffectiveContractDays() int {
	if p.ContractDays <= 0 {
		return DefaultContractDays
	}
	return p.ContractDays
}

// ContractDueAt returns the contractual completion deadline, or nil when the
// project has no effective start.
func (p *Project) ContractDueAt() *time.Time {
	start := p.EffectiveStartedAt()
	if start == nil {
		return nil
	}
	due := start.AddDate(0, 0, p.EffectiveContractDays())
	return &due
}

// NetProgressDays returns the pause-adjusted elapsed whole days for this
// project, evaluated at now.
func (p *Project) NetProgressDays(pauses []Pause, now time.Time) int {
	return NetProgressDays(p.EffectiveStartedAt(), p.EffectiveFinishedAt(), pauses, now)
}
