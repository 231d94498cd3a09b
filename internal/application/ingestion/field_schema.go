// Package ingestion synchronizes the rollout portfolio from the external
// task tracker: parent store tasks, per-stage step tasks, custom field
// mapping, and the bookkeeping around each run.
package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/rollout"
)

// FieldTarget names a typed destination on the project a tracker custom
// field maps to.
type FieldTarget string

const (
	TargetStoreCode    FieldTarget = "store_code"
	TargetMonthlyValue FieldTarget = "monthly_value"
	TargetSetupValue   FieldTarget = "setup_value"
	TargetERP          FieldTarget = "erp"
	TargetCRM          FieldTarget = "crm"
	TargetCNPJ         FieldTarget = "cnpj"
	TargetNetwork      FieldTarget = "network"
	TargetClass        FieldTarget = "class"
)

// FieldKind is the value type expected for a target.
type FieldKind int

const (
	KindText FieldKind = iota
	KindDecimal
)

var (
	// ErrSchemaDuplicateLabel indicates two bindings claim the same label.
	ErrSchemaDuplicateLabel = errors.New("ingestion: duplicate field label in schema")
	// ErrSchemaEmptyLabel indicates a binding without labels.
	ErrSchemaEmptyLabel = errors.New("ingestion: field binding has no labels")
)

// FieldBinding ties a set of known tracker field labels to one destination.
// Labels are matched exactly after normalization, never by substring, so an
// unexpected field name is ignored instead of silently captured.
type FieldBinding struct {
	Target FieldTarget
	Kind   FieldKind
	Labels []string
}

// FieldSchema is the validated label index used while mapping tasks.
type FieldSchema struct {
	byLabel map[string]FieldBinding
}

// DefaultFieldBindings returns the bindings for the tracker workspace this
// board ingests. Labels carry the pt-BR names the fields actually have,
// with and without diacritics since both occur in exports.
func DefaultFieldBindings() []FieldBinding {
	return []FieldBinding{
		{Target: TargetStoreCode, Kind: KindText, Labels: []string{"id loja", "codigo loja", "código loja"}},
		{Target: TargetMonthlyValue, Kind: KindDecimal, Labels: []string{"valor mensalidade", "mensalidade"}},
		{Target: TargetSetupValue, Kind: KindDecimal, Labels: []string{"valor implantacao", "valor implantação", "implantacao", "implantação"}},
		{Target: TargetERP, Kind: KindText, Labels: []string{"erp"}},
		{Target: TargetCRM, Kind: KindText, Labels: []string{"crm"}},
		{Target: TargetCNPJ, Kind: KindText, Labels: []string{"cnpj"}},
		{Target: TargetNetwork, Kind: KindText, Labels: []string{"rede", "grupo economico", "grupo econômico"}},
		{Target: TargetClass, Kind: KindText, Labels: []string{"tipo loja", "classe"}},
	}
}

// NewFieldSchema builds and validates a schema from bindings.
func NewFieldSchema(bindings []FieldBinding) (*FieldSchema, error) {
	byLabel := make(map[string]FieldBinding)
	for _, b := range bindings {
		if len(b.Labels) == 0 {
			return nil, fmt.Errorf("%w: target %s", ErrSchemaEmptyLabel, b.Target)
		}
		for _, label := range b.Labels {
			key := normalizeLabel(label)
			if key == "" {
				return nil, fmt.Errorf("%w: target %s", ErrSchemaEmptyLabel, b.Target)
			}
			if _, exists := byLabel[key]; exists {
				return nil, fmt.Errorf("%w: %q", ErrSchemaDuplicateLabel, label)
			}
			byLabel[key] = b
		}
	}
	return &FieldSchema{byLabel: byLabel}, nil
}

// DefaultFieldSchema returns the schema over DefaultFieldBindings. The
// default bindings are static, so construction cannot fail.
func DefaultFieldSchema() *FieldSchema {
	schema, err := NewFieldSchema(DefaultFieldBindings())
	if err != nil {
		panic(err)
	}
	return schema
}

// Resolve maps a tracker field label to its binding, if one is declared.
func (s *FieldSchema) Resolve(label string) (FieldBinding, bool) {
	b, ok := s.byLabel[normalizeLabel(label)]
	return b, ok
}

// Apply writes a raw tracker field value onto the project through the
// binding. Unparseable decimal values are ignored, matching the policy that
// malformed tracker data degrades instead of failing the item.
func (s *FieldSchema) Apply(p *rollout.Project, b FieldBinding, raw interface{}) {
	if raw == nil {
		return
	}
	val := strings.TrimSpace(fmt.Sprint(raw))
	if val == "" {
		return
	}

	switch b.Target {
	case TargetStoreCode:
		if p.StoreCode == "" {
			p.StoreCode = val
		}
	case TargetMonthlyValue:
		if d, err := decimal.NewFromString(val); err == nil {
			p.MonthlyValue = d
		}
	case TargetSetupValue:
		if d, err := decimal.NewFromString(val); err == nil {
			p.SetupValue = d
		}
	case TargetERP:
		p.ERP = val
	case TargetCRM:
		p.CRM = val
	case TargetCNPJ:
		p.CNPJ = val
	case TargetNetwork:
		p.Network = val
	case TargetClass:
		if c := parseStoreClass(val); c.IsValid() {
			p.Class = c
		}
	}
}

// parseStoreClass maps a free-form class label onto the closed enum.
func parseStoreClass(val string) rollout.StoreClass {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "matriz":
		return rollout.ClassMatriz
	case "filial":
		return rollout.ClassFilial
	}
	return ""
}

// normalizeLabel lowercases and trims a field label for exact matching.
func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
