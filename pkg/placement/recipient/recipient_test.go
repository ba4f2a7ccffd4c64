package recipient

import (
	"context"
	"testing"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	applicants []placement.Applicant
	err        error
	calls      int
}

func (s *stubLister) ListApplicants(context.Context, kernel.DriveID) ([]placement.Applicant, error) {
	s.calls++
	return s.applicants, s.err
}

func applicant(id, email string, status placement.ApplicationStatus) placement.Applicant {
	return placement.Applicant{
		Student: placement.Student{ID: kernel.UserID(id), Name: "Student " + id, Email: email},
		Status:  status,
	}
}

func drive() []placement.Applicant {
	return []placement.Applicant{
		applicant("s1", "s1@college.edu", placement.StatusShortlisted),
		applicant("s2", "s2@college.edu", placement.StatusApplied),
		applicant("s3", "s3@college.edu", placement.StatusShortlisted),
		applicant("s4", "s4@college.edu", placement.StatusRejected),
	}
}

func emails(rs []Recipient) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Email
	}
	return out
}

func TestResolve_ByStatus(t *testing.T) {
	r := NewResolver(&stubLister{applicants: drive()})

	got, err := r.Resolve(context.Background(), "d1", ByStatus{Status: placement.StatusShortlisted})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1@college.edu", "s3@college.edu"}, emails(got))
}

func TestResolve_AllApplicants(t *testing.T) {
	r := NewResolver(&stubLister{applicants: drive()})

	got, err := r.Resolve(context.Background(), "d1", AllApplicants{})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestResolve_ExplicitIncludeIgnoresNonApplicants(t *testing.T) {
	r := NewResolver(&stubLister{applicants: drive()})

	got, err := r.ResolveRaw(context.Background(), "d1", "MANUAL_SELECTED", `["s1","outsider"]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, kernel.UserID("s1"), got[0].StudentID)
}

func TestResolve_IncludeAndExcludePartitionApplicants(t *testing.T) {
	r := NewResolver(&stubLister{applicants: drive()})
	subset := []kernel.UserID{"s2", "s4"}

	inc, err := r.Resolve(context.Background(), "d1", ExplicitInclude{StudentIDs: subset})
	require.NoError(t, err)
	exc, err := r.Resolve(context.Background(), "d1", ExplicitExclude{StudentIDs: subset})
	require.NoError(t, err)

	assert.Equal(t, []string{"s2@college.edu", "s4@college.edu"}, emails(inc))
	assert.Equal(t, []string{"s1@college.edu", "s3@college.edu"}, emails(exc))
	assert.ElementsMatch(t, emails(Dedupe(append(inc, exc...))), append(emails(inc), emails(exc)...))
	assert.Len(t, append(inc, exc...), 4)
}

func TestResolve_DeduplicatesByEmail(t *testing.T) {
	apps := append(drive(), applicant("s5", " S1@College.edu ", placement.StatusShortlisted))
	r := NewResolver(&stubLister{applicants: apps})

	got, err := r.Resolve(context.Background(), "d1", AllApplicants{})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, rc := range got {
		key := NormalizeEmail(rc.Email)
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
	}
	assert.Len(t, got, 4)
}

func TestResolve_OrdersByStudentID(t *testing.T) {
	apps := []placement.Applicant{
		applicant("s3", "s3@college.edu", placement.StatusApplied),
		applicant("s1", "s1@college.edu", placement.StatusApplied),
		applicant("s2", "s1@College.edu", placement.StatusApplied),
	}
	r := NewResolver(&stubLister{applicants: apps})

	got, err := r.Resolve(context.Background(), "d1", AllApplicants{})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, kernel.UserID("s1"), got[0].StudentID)
	assert.Equal(t, kernel.UserID("s3"), got[1].StudentID)
}

func TestResolve_IsLive(t *testing.T) {
	lister := &stubLister{applicants: drive()}
	r := NewResolver(lister)

	_, _ = r.Resolve(context.Background(), "d1", AllApplicants{})
	lister.applicants = append(lister.applicants, applicant("s9", "s9@college.edu", placement.StatusApplied))
	got, err := r.Resolve(context.Background(), "d1", AllApplicants{})

	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 2, lister.calls)
}

func TestResolve_PropagatesStoreError(t *testing.T) {
	r := NewResolver(&stubLister{err: placement.ErrStoreFailure(assert.AnError)})

	_, err := r.Resolve(context.Background(), "d1", AllApplicants{})
	assert.True(t, errx.IsCode(err, placement.CodeStoreFailure))
}

func TestParseTargetRule(t *testing.T) {
	rule, err := ParseTargetRule("by_status", "shortlisted")
	require.NoError(t, err)
	assert.Equal(t, ByStatus{Status: placement.StatusShortlisted}, rule)

	rule, err = ParseTargetRule("MANUAL_EXCLUDED", `["a","b"]`)
	require.NoError(t, err)
	assert.Equal(t, ExplicitExclude{StudentIDs: []kernel.UserID{"a", "b"}}, rule)
	assert.Equal(t, `["a","b"]`, rule.Value())

	rule, err = ParseTargetRule("MANUAL_SELECTED", "")
	require.NoError(t, err)
	assert.Empty(t, rule.(ExplicitInclude).StudentIDs)

	_, err = ParseTargetRule("BY_STATUS", "HIRED")
	assert.True(t, errx.IsCode(err, CodeInvalidRule))

	_, err = ParseTargetRule("MANUAL_SELECTED", "s1,s2")
	assert.True(t, errx.IsCode(err, CodeInvalidRule))

	_, err = ParseTargetRule("BY_BRANCH", "CSE")
	assert.True(t, errx.IsCode(err, CodeInvalidRule))
}

type rogueRule struct{ AllApplicants }

func (rogueRule) Kind() RuleKind { return "ROGUE" }

func TestSelect_UnknownVariantPanics(t *testing.T) {
	assert.Panics(t, func() { Select(drive(), rogueRule{}) })
}
