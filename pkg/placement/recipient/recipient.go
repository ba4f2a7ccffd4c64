package recipient

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
)

// Recipient is one resolved addressee with the attributes templates use.
type Recipient struct {
	StudentID kernel.UserID               `json:"student_id"`
	Email     string                      `json:"email"`
	Name      string                      `json:"name"`
	Branch    string                      `json:"branch,omitempty"`
	CGPA      *float64                    `json:"cgpa,omitempty"`
	Status    placement.ApplicationStatus `json:"status"`
}

// Student returns the recipient as a placement.Student.
func (r Recipient) Student() placement.Student {
	return placement.Student{ID: r.StudentID, Name: r.Name, Email: r.Email, Branch: r.Branch, CGPA: r.CGPA}
}

// ApplicantLister is the read capability the resolver needs.
type ApplicantLister interface {
	ListApplicants(ctx context.Context, driveID kernel.DriveID) ([]placement.Applicant, error)
}

// Resolver turns targeting rules into recipient lists. Every call reads the
// current applicant set; nothing is cached.
type Resolver struct {
	applicants ApplicantLister
}

func NewResolver(applicants ApplicantLister) *Resolver {
	return &Resolver{applicants: applicants}
}

// Resolve returns the applicants of driveID selected by rule, ordered by
// student id and deduplicated by email.
func (r *Resolver) Resolve(ctx context.Context, driveID kernel.DriveID, rule TargetRule) ([]Recipient, error) {
	applicants, err := r.applicants.ListApplicants(ctx, driveID)
	if err != nil {
		return nil, err
	}
	selected := Select(applicants, rule)
	sort.SliceStable(selected, func(i, j int) bool { return selected[i].StudentID < selected[j].StudentID })
	return Dedupe(selected), nil
}

// ResolveRaw parses (kind, value) and resolves it.
func (r *Resolver) ResolveRaw(ctx context.Context, driveID kernel.DriveID, kind, value string) ([]Recipient, error) {
	rule, err := ParseTargetRule(kind, value)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, driveID, rule)
}

// Select filters applicants by rule. An unknown rule variant is a
// programming error and panics.
func Select(applicants []placement.Applicant, rule TargetRule) []Recipient {
	var keep func(placement.Applicant) bool

	switch rl := rule.(type) {
	case ByStatus:
		keep = func(a placement.Applicant) bool { return a.Status == rl.Status }
	case AllApplicants:
		keep = func(placement.Applicant) bool { return true }
	case ExplicitInclude:
		ids := idSet(rl.StudentIDs)
		keep = func(a placement.Applicant) bool {
			_, ok := ids[a.ID]
			return ok
		}
	case ExplicitExclude:
		ids := idSet(rl.StudentIDs)
		keep = func(a placement.Applicant) bool {
			_, ok := ids[a.ID]
			return !ok
		}
	default:
		panic(fmt.Sprintf("recipient: unhandled targeting rule %T", rule))
	}

	out := make([]Recipient, 0, len(applicants))
	for _, a := range applicants {
		if keep(a) {
			out = append(out, fromApplicant(a))
		}
	}
	return out
}

// Dedupe keeps the first recipient for each email, compared case-insensitively.
// Recipients without an email are dropped.
func Dedupe(in []Recipient) []Recipient {
	seen := make(map[string]struct{}, len(in))
	out := make([]Recipient, 0, len(in))
	for _, r := range in {
		key := NormalizeEmail(r.Email)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// NormalizeEmail is the dedup key for an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func fromApplicant(a placement.Applicant) Recipient {
	return Recipient{
		StudentID: a.ID,
		Email:     strings.TrimSpace(a.Email),
		Name:      a.Name,
		Branch:    a.Branch,
		CGPA:      a.CGPA,
		Status:    a.Status,
	}
}

func idSet(ids []kernel.UserID) map[kernel.UserID]struct{} {
	set := make(map[kernel.UserID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
