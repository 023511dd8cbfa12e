package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/errors"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/workflow"
)

var (
	memberActor  = Actor{ID: "member-1", RoleLevel: workflow.LevelMember, Type: models.ActorTypeUser}
	stewardActor = Actor{ID: "steward-1", RoleLevel: workflow.LevelSteward, Type: models.ActorTypeUser}
	officerActor = Actor{ID: "officer-1", RoleLevel: workflow.LevelOfficer, Type: models.ActorTypeUser}
	adminActor   = Actor{ID: "admin-1", RoleLevel: workflow.LevelAdmin, Type: models.ActorTypeUser}
)

func newTestService(t *testing.T) (*ClaimService, *db.DB) {
	t.Helper()
	d := db.NewTestDB(t)
	t.Cleanup(func() { d.Close() })

	orgRepo := db.NewOrgRepo(d.DB)
	require.NoError(t, orgRepo.Create(&models.Organization{Key: "ACME", Name: "ACME Local 100"}))

	return NewClaimService(d.DB), d
}

// backdateStatus rewinds status_entered_at so dwell checks can pass in tests.
func backdateStatus(t *testing.T, d *db.DB, claimID int64, age time.Duration) {
	t.Helper()
	_, err := d.Exec(`UPDATE claims SET status_entered_at = ? WHERE id = ?`,
		db.FormatTime(time.Now().Add(-age)), claimID)
	require.NoError(t, err)
}

func TestClaimService_File(t *testing.T) {
	svc, _ := newTestService(t)

	claim, err := svc.File("acme", "Overtime dispute", "j.doe", models.PriorityHigh, memberActor)
	require.NoError(t, err)
	assert.Equal(t, "ACME-1", claim.Key())
	assert.Equal(t, models.StateSubmitted, claim.Status)
	assert.Equal(t, models.PriorityHigh, claim.Priority)

	activity, err := svc.Activity("ACME", 1, 10)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, models.ActionFiled, activity[0].Action)
	assert.Equal(t, "member-1", activity[0].ActorID)
}

func TestClaimService_FileValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.File("ACME", "", "", models.PriorityMedium, memberActor)
	assert.True(t, errors.Is(err, errors.KindInvalidArgs))

	_, err = svc.File("NOPE", "Title", "", models.PriorityMedium, memberActor)
	assert.True(t, errors.Is(err, errors.KindNotFound))

	_, err = svc.File("ACME", "Title", "", models.Priority("extreme"), memberActor)
	assert.True(t, errors.Is(err, errors.KindInvalidArgs))
}

func TestClaimService_TransitionAccepted(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	result, err := svc.Transition("ACME", 1, models.StateUnderReview, stewardActor)
	require.NoError(t, err)
	assert.Equal(t, "submitted", result.From)
	assert.Equal(t, "under_review", result.To)
	assert.Equal(t, models.StateUnderReview, result.Claim.Status)

	activity, err := svc.Activity("ACME", 1, 10)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, models.ActionStatusChanged, activity[0].Action)
	assert.Equal(t, "submitted", activity[0].FromStatus)
	assert.Equal(t, "under_review", activity[0].ToStatus)
}

func TestClaimService_TransitionRetriesAfterLostRace(t *testing.T) {
	svc, d := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	// A concurrent writer acknowledges the claim after the first
	// evaluation but before the swap; the retry re-reads and succeeds.
	repo := db.NewClaimRepo(d.DB)
	svc.beforeApply = func(claim *models.Claim, attempt int) {
		if attempt > 0 {
			return
		}
		ok, err := repo.UpdateStatusCAS(claim.ID, claim.Status, &workflow.Mutation{
			Status:          models.StateAcknowledged,
			StatusEnteredAt: time.Now(),
		})
		require.NoError(t, err)
		require.True(t, ok)
	}

	result, err := svc.Transition("ACME", 1, models.StateUnderReview, stewardActor)
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", result.From, "retry evaluated against the fresh state")
	assert.Equal(t, "under_review", result.To)
	assert.Equal(t, models.StateUnderReview, result.Claim.Status)
}

func TestClaimService_TransitionConflictAfterRetriesExhausted(t *testing.T) {
	svc, d := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	// Flip the status on every attempt so the swap never lands.
	repo := db.NewClaimRepo(d.DB)
	attempts := 0
	svc.beforeApply = func(claim *models.Claim, attempt int) {
		attempts++
		next := models.StateAcknowledged
		if claim.Status == models.StateAcknowledged {
			next = models.StateSubmitted
		}
		ok, err := repo.UpdateStatusCAS(claim.ID, claim.Status, &workflow.Mutation{
			Status:          next,
			StatusEnteredAt: time.Now(),
		})
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, err = svc.Transition("ACME", 1, models.StateRejected, adminActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindConcurrentConflict))
	assert.Equal(t, maxTransitionRetries+1, attempts)
}

func TestClaimService_TransitionDeniedByRole(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	_, err = svc.Transition("ACME", 1, models.StateUnderReview, memberActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindWorkflowRejected))

	// Claim did not move and the denial was logged.
	claim, err := svc.Get("ACME", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitted, claim.Status)

	activity, err := svc.Activity("ACME", 1, 10)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, models.ActionStatusDenied, activity[0].Action)
	assert.Equal(t, string(workflow.ReasonInsufficientRole), activity[0].ReasonCode)
}

func TestClaimService_TransitionDeniedIllegal(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	_, err = svc.Transition("ACME", 1, models.StateClosed, adminActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindWorkflowRejected))
	assert.Contains(t, err.Error(), "invalid transition")
}

func TestClaimService_CloseRequiresCoolingOff(t *testing.T) {
	svc, d := newTestService(t)
	claim, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	// Walk to resolved.
	_, err = svc.Transition("ACME", 1, models.StateUnderReview, stewardActor)
	require.NoError(t, err)
	_, err = svc.Transition("ACME", 1, models.StateResolved, officerActor)
	require.NoError(t, err)

	// Fresh resolution cannot close yet.
	_, err = svc.Close("ACME", 1, adminActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindWorkflowRejected))
	assert.Contains(t, err.Error(), "7 days required")

	// After the cooling-off period it closes.
	backdateStatus(t, d, claim.ID, 8*24*time.Hour)
	result, err := svc.Close("ACME", 1, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.StateClosed, result.Claim.Status)
	require.NotNil(t, result.Claim.ClosedAt)
	require.NotNil(t, result.Claim.ResolvedAt)
}

func TestClaimService_SignalBlocksResolution(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)
	_, err = svc.Transition("ACME", 1, models.StateUnderReview, stewardActor)
	require.NoError(t, err)

	sig, err := svc.RaiseSignal("ACME", 1, models.SignalSLABreach, models.SeverityCritical, "", SystemActor)
	require.NoError(t, err)

	_, err = svc.Transition("ACME", 1, models.StateResolved, officerActor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "critical signal")

	// Resolving the signal unblocks the transition.
	_, err = svc.ResolveSignal(sig.ID, officerActor)
	require.NoError(t, err)

	result, err := svc.Transition("ACME", 1, models.StateResolved, officerActor)
	require.NoError(t, err)
	assert.Equal(t, models.StateResolved, result.Claim.Status)
	require.NotNil(t, result.Claim.ResolvedAt)
}

func TestClaimService_TransitionNoOp(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	_, err = svc.Transition("ACME", 1, models.StateSubmitted, adminActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindWorkflowRejected))

	claim, err := svc.Get("ACME", 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitted, claim.Status)
}

func TestClaimService_AllowedTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	options, err := svc.AllowedTransitions("ACME", 1, stewardActor)
	require.NoError(t, err)
	require.Len(t, options, 3)

	byTarget := map[models.ClaimState]TransitionOption{}
	for _, o := range options {
		byTarget[o.To] = o
	}
	assert.True(t, byTarget[models.StateUnderReview].Permitted)
	assert.True(t, byTarget[models.StateAcknowledged].Permitted)
	assert.False(t, byTarget[models.StateRejected].Permitted, "rejection is admin-only")
	assert.Equal(t, workflow.LevelAdmin, byTarget[models.StateRejected].Requirements.RequiredLevel)
}

func TestClaimService_UpdateFields(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	newTitle := "Overtime dispute (amended)"
	urgent := models.PriorityUrgent
	claim, err := svc.UpdateFields("ACME", 1, &newTitle, nil, &urgent, stewardActor)
	require.NoError(t, err)
	assert.Equal(t, newTitle, claim.Title)
	assert.Equal(t, models.PriorityUrgent, claim.Priority)
	assert.Equal(t, models.StateSubmitted, claim.Status)

	activity, err := svc.Activity("ACME", 1, 10)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, models.ActionFieldChanged, activity[0].Action)
}

func TestClaimService_UpdateFieldsNoChangesNoLog(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)

	_, err = svc.UpdateFields("ACME", 1, nil, nil, nil, stewardActor)
	require.NoError(t, err)

	activity, err := svc.Activity("ACME", 1, 10)
	require.NoError(t, err)
	assert.Len(t, activity, 1, "only the filing entry")
}

func TestClaimService_WithdrawFromReview(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.File("ACME", "Overtime dispute", "j.doe", models.PriorityMedium, memberActor)
	require.NoError(t, err)
	_, err = svc.Transition("ACME", 1, models.StateUnderReview, stewardActor)
	require.NoError(t, err)

	result, err := svc.Withdraw("ACME", 1, memberActor)
	require.NoError(t, err)
	assert.Equal(t, models.StateWithdrawn, result.Claim.Status)

	// Terminal: nothing further is accepted.
	_, err = svc.Transition("ACME", 1, models.StateUnderReview, adminActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindWorkflowRejected))
}
