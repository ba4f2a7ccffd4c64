package recipient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
)

var ErrRegistry = errx.NewRegistry("RECIPIENT")

var (
	CodeInvalidRule = ErrRegistry.Register("INVALID_RULE", errx.TypeValidation, http.StatusBadRequest, "Invalid targeting rule")
)

func ErrInvalidRule() *errx.Error { return ErrRegistry.New(CodeInvalidRule) }

// RuleKind is the persisted discriminator of a targeting rule.
type RuleKind string

const (
	KindByStatus       RuleKind = "BY_STATUS"
	KindAllApplicants  RuleKind = "ALL_APPLICANTS"
	KindManualSelected RuleKind = "MANUAL_SELECTED"
	KindManualExcluded RuleKind = "MANUAL_EXCLUDED"
)

// TargetRule selects which applicants of a drive a message reaches. The
// set of variants is closed: ByStatus, AllApplicants, ExplicitInclude and
// ExplicitExclude.
type TargetRule interface {
	Kind() RuleKind
	// Value is the persisted form: a status or a JSON array of ids.
	Value() string
	isTargetRule()
}

// ByStatus targets applicants whose application currently has Status.
type ByStatus struct {
	Status placement.ApplicationStatus
}

// AllApplicants targets every applicant regardless of status.
type AllApplicants struct{}

// ExplicitInclude targets the named students that applied to the drive.
type ExplicitInclude struct {
	StudentIDs []kernel.UserID
}

// ExplicitExclude targets every applicant except the named students.
type ExplicitExclude struct {
	StudentIDs []kernel.UserID
}

func (ByStatus) Kind() RuleKind        { return KindByStatus }
func (AllApplicants) Kind() RuleKind   { return KindAllApplicants }
func (ExplicitInclude) Kind() RuleKind { return KindManualSelected }
func (ExplicitExclude) Kind() RuleKind { return KindManualExcluded }

func (r ByStatus) Value() string        { return string(r.Status) }
func (AllApplicants) Value() string     { return "" }
func (r ExplicitInclude) Value() string { return encodeIDs(r.StudentIDs) }
func (r ExplicitExclude) Value() string { return encodeIDs(r.StudentIDs) }

func (ByStatus) isTargetRule()        {}
func (AllApplicants) isTargetRule()   {}
func (ExplicitInclude) isTargetRule() {}
func (ExplicitExclude) isTargetRule() {}

// ParseTargetRule converts the persisted (kind, value) pair into a rule.
// Id lists are JSON arrays; an empty value is an empty list.
func ParseTargetRule(kind, value string) (TargetRule, error) {
	switch RuleKind(strings.ToUpper(strings.TrimSpace(kind))) {
	case KindByStatus:
		status, err := placement.ParseApplicationStatus(value)
		if err != nil {
			return nil, ErrInvalidRule().WithDetail("kind", kind).WithDetail("value", value)
		}
		return ByStatus{Status: status}, nil
	case KindAllApplicants:
		return AllApplicants{}, nil
	case KindManualSelected:
		ids, err := decodeIDs(value)
		if err != nil {
			return nil, err
		}
		return ExplicitInclude{StudentIDs: ids}, nil
	case KindManualExcluded:
		ids, err := decodeIDs(value)
		if err != nil {
			return nil, err
		}
		return ExplicitExclude{StudentIDs: ids}, nil
	default:
		return nil, ErrInvalidRule().WithDetail("kind", kind).WithDetail("reason", "unknown rule kind")
	}
}

func decodeIDs(value string) ([]kernel.UserID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, ErrRegistry.NewWithCause(CodeInvalidRule, err).
			WithDetail("value", value).
			WithDetail("reason", "expected a JSON array of student ids")
	}
	ids := make([]kernel.UserID, 0, len(raw))
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, kernel.UserID(id))
		}
	}
	return ids, nil
}

func encodeIDs(ids []kernel.UserID) string {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		panic(fmt.Sprintf("recipient: marshal ids: %v", err))
	}
	return string(data)
}
