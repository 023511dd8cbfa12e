package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unionhall/claimflow/internal/models"
)

var testNow = time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)

// baseRequest builds a request that passes every guard unless the test
// overrides a field: maximum role, dwell long since satisfied, no signals.
func baseRequest(from, to models.ClaimState) Request {
	return Request{
		ClaimKey:        "ACME-1",
		From:            from,
		To:              to,
		ActorID:         "user_admin",
		ActorRoleLevel:  LevelSystem,
		Priority:        models.PriorityMedium,
		StatusEnteredAt: testNow.Add(-30 * 24 * time.Hour),
		Now:             testNow,
		Signals:         NewSignalSet(),
	}
}

func TestEvaluate_SpecScenarios(t *testing.T) {
	e := NewEngine()

	t.Run("submitted to closed is illegal even for admin", func(t *testing.T) {
		req := baseRequest(models.StateSubmitted, models.StateClosed)
		req.ActorRoleLevel = LevelAdmin

		d := e.Evaluate(req)

		require.False(t, d.Allowed)
		assert.Equal(t, ReasonIllegalTransition, d.Code)
		assert.Contains(t, d.Message, "Allowed transitions: under_review, acknowledged, rejected")
	})

	t.Run("submitted to under_review accepted at officer level", func(t *testing.T) {
		req := baseRequest(models.StateSubmitted, models.StateUnderReview)
		req.ActorRoleLevel = LevelOfficer

		d := e.Evaluate(req)

		require.True(t, d.Allowed, d.Message)
		require.NotNil(t, d.Mutation)
		assert.Equal(t, models.StateUnderReview, d.Mutation.Status)
		assert.Equal(t, testNow, d.Mutation.StatusEnteredAt)
		assert.Nil(t, d.Mutation.ResolvedAt)
		assert.Nil(t, d.Mutation.ClosedAt)
	})

	t.Run("resolved to closed at five days fails cooling-off", func(t *testing.T) {
		req := baseRequest(models.StateResolved, models.StateClosed)
		req.ActorRoleLevel = LevelAdmin
		req.StatusEnteredAt = testNow.Add(-5 * 24 * time.Hour)

		d := e.Evaluate(req)

		require.False(t, d.Allowed)
		assert.Equal(t, ReasonMinimumDwellNotMet, d.Code)
		assert.Contains(t, d.Message, "7 days required")
		assert.Contains(t, d.Message, "48 hours remaining")
	})

	t.Run("resolved to closed at eight days accepted", func(t *testing.T) {
		req := baseRequest(models.StateResolved, models.StateClosed)
		req.ActorRoleLevel = LevelAdmin
		req.StatusEnteredAt = testNow.Add(-8 * 24 * time.Hour)

		d := e.Evaluate(req)

		require.True(t, d.Allowed, d.Message)
		require.NotNil(t, d.Mutation)
		assert.Equal(t, models.StateClosed, d.Mutation.Status)
		require.NotNil(t, d.Mutation.ClosedAt)
		assert.Equal(t, testNow, *d.Mutation.ClosedAt)
	})

	t.Run("sla breach signal vetoes resolution", func(t *testing.T) {
		req := baseRequest(models.StateUnderReview, models.StateResolved)
		req.ActorRoleLevel = LevelOfficer
		req.Signals = NewSignalSet(models.SignalSLABreach)

		d := e.Evaluate(req)

		require.False(t, d.Allowed)
		assert.Equal(t, ReasonCriticalSignalPresent, d.Code)
		assert.Contains(t, d.Message, "critical signal")
		assert.Contains(t, d.Message, string(models.SignalSLABreach))
	})

	t.Run("rejecting a claim requires admin", func(t *testing.T) {
		req := baseRequest(models.StateSubmitted, models.StateRejected)
		req.ActorRoleLevel = 30

		d := e.Evaluate(req)

		require.False(t, d.Allowed)
		assert.Equal(t, ReasonInsufficientRole, d.Code)
		assert.Contains(t, d.Message, "Required: 90")
		assert.Contains(t, d.Message, "Current: 30")
	})
}

// TestEvaluate_FailClosed walks the full state-pair grid: every pair
// not whitelisted in the transition table must reject with
// IllegalTransition even under maximum privilege.
func TestEvaluate_FailClosed(t *testing.T) {
	e := NewEngine()
	table := DefaultTransitionTable()

	for _, from := range models.AllClaimStates {
		for _, to := range models.AllClaimStates {
			from, to := from, to
			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				d := e.Evaluate(baseRequest(from, to))

				switch {
				case from == to:
					require.False(t, d.Allowed)
					assert.Equal(t, ReasonNoOp, d.Code)
				case table.IsLegal(from, to):
					require.True(t, d.Allowed, d.Message)
					require.NotNil(t, d.Mutation)
					assert.Equal(t, to, d.Mutation.Status)
				default:
					require.False(t, d.Allowed)
					assert.Equal(t, ReasonIllegalTransition, d.Code)
					assert.Nil(t, d.Mutation)
				}
			})
		}
	}
}

func TestEvaluate_UnrecognizedStatesFailClosed(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name string
		from models.ClaimState
		to   models.ClaimState
	}{
		{"unknown from", models.ClaimState("reopened"), models.StateUnderReview},
		{"unknown to", models.StateUnderReview, models.ClaimState("escalated")},
		{"both unknown", models.ClaimState("draft"), models.ClaimState("archived")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Evaluate(baseRequest(tt.from, tt.to))
			require.False(t, d.Allowed)
			assert.Equal(t, ReasonIllegalTransition, d.Code)
		})
	}
}

func TestEvaluate_AbsorbingStates(t *testing.T) {
	e := NewEngine()

	for _, from := range []models.ClaimState{models.StateClosed, models.StateWithdrawn, models.StateRejected} {
		for _, to := range models.AllClaimStates {
			if from == to {
				continue
			}
			d := e.Evaluate(baseRequest(from, to))
			require.False(t, d.Allowed, "%s -> %s must not be allowed", from, to)
			assert.Equal(t, ReasonIllegalTransition, d.Code)
			assert.Contains(t, d.Message, "terminal state")
		}
	}
}

func TestEvaluate_NoOp(t *testing.T) {
	e := NewEngine()

	d := e.Evaluate(baseRequest(models.StateUnderReview, models.StateUnderReview))

	require.False(t, d.Allowed)
	assert.Equal(t, ReasonNoOp, d.Code)
	assert.Contains(t, d.Message, "already in status under_review")
}

// Role monotonicity: once a transition is accepted at level R, it is
// accepted at every level above R, all else equal.
func TestEvaluate_RoleMonotonicity(t *testing.T) {
	e := NewEngine()

	req := baseRequest(models.StateSubmitted, models.StateUnderReview)
	req.ActorRoleLevel = LevelSteward
	require.True(t, e.Evaluate(req).Allowed)

	for _, level := range []int{LevelSteward + 1, LevelOfficer, LevelAdmin, LevelSystem} {
		req.ActorRoleLevel = level
		assert.True(t, e.Evaluate(req).Allowed, "level %d", level)
	}

	req.ActorRoleLevel = LevelSteward - 1
	d := e.Evaluate(req)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonInsufficientRole, d.Code)
}

// Dwell monotonicity: a transition rejected for insufficient dwell
// becomes accepted once the required time has elapsed.
func TestEvaluate_DwellMonotonicity(t *testing.T) {
	e := NewEngine()

	req := baseRequest(models.StateResolved, models.StateClosed)
	req.ActorRoleLevel = LevelAdmin

	for _, days := range []int{0, 1, 3, 6} {
		req.StatusEnteredAt = testNow.Add(-time.Duration(days) * 24 * time.Hour)
		d := e.Evaluate(req)
		require.False(t, d.Allowed, "day %d", days)
		assert.Equal(t, ReasonMinimumDwellNotMet, d.Code)
	}
	for _, days := range []int{7, 8, 30} {
		req.StatusEnteredAt = testNow.Add(-time.Duration(days) * 24 * time.Hour)
		assert.True(t, e.Evaluate(req).Allowed, "day %d", days)
	}
}

func TestEvaluate_ReviewDwellRules(t *testing.T) {
	e := NewEngine()

	t.Run("under_review to investigating before 24h", func(t *testing.T) {
		req := baseRequest(models.StateUnderReview, models.StateInvestigating)
		req.StatusEnteredAt = testNow.Add(-12 * time.Hour)

		d := e.Evaluate(req)

		require.False(t, d.Allowed)
		assert.Equal(t, ReasonMinimumDwellNotMet, d.Code)
		assert.Contains(t, d.Message, "24 hours required")
		assert.Contains(t, d.Message, "hours remaining")
	})

	t.Run("under_review to investigating after 25h", func(t *testing.T) {
		req := baseRequest(models.StateUnderReview, models.StateInvestigating)
		req.StatusEnteredAt = testNow.Add(-25 * time.Hour)

		assert.True(t, e.Evaluate(req).Allowed)
	})

	t.Run("investigating to resolved before 3 days", func(t *testing.T) {
		req := baseRequest(models.StateInvestigating, models.StateResolved)
		req.StatusEnteredAt = testNow.Add(-2 * 24 * time.Hour)

		d := e.Evaluate(req)

		require.False(t, d.Allowed)
		assert.Equal(t, ReasonMinimumDwellNotMet, d.Code)
		assert.Contains(t, d.Message, "3 days required")
	})

	t.Run("investigating to resolved after 4 days", func(t *testing.T) {
		req := baseRequest(models.StateInvestigating, models.StateResolved)
		req.StatusEnteredAt = testNow.Add(-4 * 24 * time.Hour)

		assert.True(t, e.Evaluate(req).Allowed)
	})
}

// Check ordering is part of the contract: a request failing several
// guards at once must report the earliest check's reason.
func TestEvaluate_CheckOrdering(t *testing.T) {
	e := NewEngine()

	t.Run("illegal beats insufficient role", func(t *testing.T) {
		req := baseRequest(models.StateSubmitted, models.StateClosed)
		req.ActorRoleLevel = LevelMember

		d := e.Evaluate(req)
		assert.Equal(t, ReasonIllegalTransition, d.Code)
	})

	t.Run("role beats dwell", func(t *testing.T) {
		req := baseRequest(models.StateResolved, models.StateClosed)
		req.ActorRoleLevel = LevelSteward
		req.StatusEnteredAt = testNow.Add(-time.Hour)

		d := e.Evaluate(req)
		assert.Equal(t, ReasonInsufficientRole, d.Code)
	})

	t.Run("dwell beats signal", func(t *testing.T) {
		req := baseRequest(models.StateResolved, models.StateClosed)
		req.ActorRoleLevel = LevelAdmin
		req.StatusEnteredAt = testNow.Add(-time.Hour)
		req.Signals = NewSignalSet(models.SignalSLABreach)

		d := e.Evaluate(req)
		assert.Equal(t, ReasonMinimumDwellNotMet, d.Code)
	})

	t.Run("signal fires once everything else passes", func(t *testing.T) {
		req := baseRequest(models.StateResolved, models.StateClosed)
		req.ActorRoleLevel = LevelAdmin
		req.StatusEnteredAt = testNow.Add(-8 * 24 * time.Hour)
		req.Signals = NewSignalSet(models.SignalSLABreach)

		d := e.Evaluate(req)
		assert.Equal(t, ReasonCriticalSignalPresent, d.Code)
	})
}

func TestEvaluate_SignalPolicy(t *testing.T) {
	e := NewEngine()

	t.Run("legal hold blocks withdrawal", func(t *testing.T) {
		req := baseRequest(models.StateUnderReview, models.StateWithdrawn)
		req.Signals = NewSignalSet(models.SignalLegalHold)

		d := e.Evaluate(req)

		require.False(t, d.Allowed)
		assert.Equal(t, ReasonCriticalSignalPresent, d.Code)
		assert.Contains(t, d.Message, string(models.SignalLegalHold))
	})

	t.Run("legal hold does not block review progress", func(t *testing.T) {
		req := baseRequest(models.StateUnderReview, models.StateNegotiating)
		req.Signals = NewSignalSet(models.SignalLegalHold)

		assert.True(t, e.Evaluate(req).Allowed)
	})

	t.Run("non-blocking signal is ignored", func(t *testing.T) {
		req := baseRequest(models.StateSubmitted, models.StateUnderReview)
		req.Signals = NewSignalSet(models.SignalSLABreach)

		assert.True(t, e.Evaluate(req).Allowed)
	})
}

// The engine is a pure function: identical inputs yield identical
// decisions, call after call.
func TestEvaluate_Idempotent(t *testing.T) {
	e := NewEngine()

	reqs := []Request{
		baseRequest(models.StateSubmitted, models.StateUnderReview),
		baseRequest(models.StateSubmitted, models.StateClosed),
		func() Request {
			r := baseRequest(models.StateResolved, models.StateClosed)
			r.StatusEnteredAt = testNow.Add(-2 * 24 * time.Hour)
			return r
		}(),
	}
	for _, req := range reqs {
		first := e.Evaluate(req)
		second := e.Evaluate(req)
		assert.Equal(t, first, second)
	}
}

func TestEvaluate_MutationTimestamps(t *testing.T) {
	e := NewEngine()

	t.Run("entering resolved stamps resolved_at", func(t *testing.T) {
		req := baseRequest(models.StateNegotiating, models.StateResolved)
		d := e.Evaluate(req)

		require.True(t, d.Allowed)
		require.NotNil(t, d.Mutation.ResolvedAt)
		assert.Equal(t, testNow, *d.Mutation.ResolvedAt)
		assert.Nil(t, d.Mutation.ClosedAt)
	})

	t.Run("other transitions leave history untouched", func(t *testing.T) {
		req := baseRequest(models.StateUnderReview, models.StatePendingResponse)
		d := e.Evaluate(req)

		require.True(t, d.Allowed)
		assert.Nil(t, d.Mutation.ResolvedAt)
		assert.Nil(t, d.Mutation.ClosedAt)
		assert.Equal(t, testNow, d.Mutation.StatusEnteredAt)
	})
}

func TestAllowedTransitions_RoleFiltered(t *testing.T) {
	e := NewEngine()

	member := e.AllowedTransitions(models.StateSubmitted, LevelMember)
	assert.Empty(t, member)

	steward := e.AllowedTransitions(models.StateSubmitted, LevelSteward)
	assert.Contains(t, steward, models.StateUnderReview)
	assert.Contains(t, steward, models.StateAcknowledged)
	assert.NotContains(t, steward, models.StateRejected)

	admin := e.AllowedTransitions(models.StateSubmitted, LevelAdmin)
	assert.Contains(t, admin, models.StateRejected)

	closedAny := e.AllowedTransitions(models.StateClosed, LevelSystem)
	assert.Empty(t, closedAny)
}

func TestRequirements(t *testing.T) {
	e := NewEngine()

	r := e.Requirements(models.StateInvestigating, models.StateResolved)
	require.True(t, r.Legal)
	assert.Equal(t, LevelOfficer, r.RequiredLevel)
	assert.Equal(t, 72*time.Hour, r.MinimumDwell)
	assert.True(t, r.RequiresDocumentation)

	r = e.Requirements(models.StateResolved, models.StateClosed)
	require.True(t, r.Legal)
	assert.Equal(t, LevelAdmin, r.RequiredLevel)
	assert.Equal(t, 7*24*time.Hour, r.MinimumDwell)
	assert.True(t, r.RequiresDocumentation)

	r = e.Requirements(models.StateSubmitted, models.StateClosed)
	assert.False(t, r.Legal)
}

func TestEvaluate_SLAWarnings(t *testing.T) {
	e := NewEngine()

	t.Run("breach warning on overdue claim", func(t *testing.T) {
		req := baseRequest(models.StateInvestigating, models.StateResolved)
		req.StatusEnteredAt = testNow.Add(-15 * 24 * time.Hour)

		d := e.Evaluate(req)

		require.True(t, d.Allowed)
		require.NotEmpty(t, d.Warnings)
		assert.Contains(t, d.Warnings[0], "SLA BREACH")
	})

	t.Run("at-risk warning near deadline", func(t *testing.T) {
		req := baseRequest(models.StateInvestigating, models.StateResolved)
		req.StatusEnteredAt = testNow.Add(-9 * 24 * time.Hour)

		d := e.Evaluate(req)

		require.True(t, d.Allowed)
		require.NotEmpty(t, d.Warnings)
		assert.Contains(t, d.Warnings[0], "SLA AT RISK")
	})

	t.Run("urgent priority halves the window", func(t *testing.T) {
		req := baseRequest(models.StateInvestigating, models.StateResolved)
		req.Priority = models.PriorityUrgent
		req.StatusEnteredAt = testNow.Add(-6 * 24 * time.Hour)

		d := e.Evaluate(req)

		require.True(t, d.Allowed)
		require.NotEmpty(t, d.Warnings)
		assert.Contains(t, d.Warnings[0], "SLA BREACH")
	})

	t.Run("no warnings well inside the window", func(t *testing.T) {
		req := baseRequest(models.StateUnderReview, models.StatePendingResponse)
		req.StatusEnteredAt = testNow.Add(-2 * 24 * time.Hour)

		d := e.Evaluate(req)

		require.True(t, d.Allowed)
		assert.Empty(t, d.Warnings)
	})
}
