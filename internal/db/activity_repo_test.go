package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unionhall/claimflow/internal/models"
)

func TestActivityRepo_CreateAndList(t *testing.T) {
	d := NewTestDB(t)
	defer d.Close()

	org := newTestOrg(t, d, "ACME")
	claim := newTestClaim(t, d, org.ID, "Overtime dispute")
	repo := NewActivityRepo(d.DB)

	accepted := models.NewActivityLog(claim.ID, models.ActionStatusChanged, models.ActorTypeUser, "officer-7", "submitted -> under_review")
	accepted.FromStatus = string(models.StateSubmitted)
	accepted.ToStatus = string(models.StateUnderReview)
	require.NoError(t, repo.Create(accepted))

	denied := models.NewActivityLog(claim.ID, models.ActionStatusDenied, models.ActorTypeUser, "member-3", "denied: insufficient role")
	denied.FromStatus = string(models.StateUnderReview)
	denied.ToStatus = string(models.StateResolved)
	denied.ReasonCode = "INSUFFICIENT_ROLE"
	require.NoError(t, repo.Create(denied))

	entries, err := repo.List(ActivityFilter{ClaimID: &claim.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ACME-1", entries[0].ClaimKey)

	action := models.ActionStatusDenied
	deniedOnly, err := repo.List(ActivityFilter{ClaimID: &claim.ID, Action: &action})
	require.NoError(t, err)
	require.Len(t, deniedOnly, 1)
	assert.Equal(t, "INSUFFICIENT_ROLE", deniedOnly[0].ReasonCode)
	assert.Equal(t, "member-3", deniedOnly[0].ActorID)
}

func TestActivityRepo_DetailsRoundTrip(t *testing.T) {
	d := NewTestDB(t)
	defer d.Close()

	org := newTestOrg(t, d, "ACME")
	claim := newTestClaim(t, d, org.ID, "Overtime dispute")
	repo := NewActivityRepo(d.DB)

	entry := models.NewActivityLog(claim.ID, models.ActionSignalRaised, models.ActorTypeSystem, "sla-sweeper", "SLA breach")
	require.NoError(t, entry.SetDetails(map[string]interface{}{"kind": "SLA_BREACH"}))
	require.NoError(t, repo.Create(entry))

	got, err := repo.GetByID(entry.ID)
	require.NoError(t, err)
	details, err := got.GetDetails()
	require.NoError(t, err)
	assert.Equal(t, "SLA_BREACH", details["kind"])
}
