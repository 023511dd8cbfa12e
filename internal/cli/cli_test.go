package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cferrors "github.com/unionhall/claimflow/internal/errors"
	"github.com/unionhall/claimflow/internal/models"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"member", 10, false},
		{"steward", 40, false},
		{"officer", 60, false},
		{"admin", 90, false},
		{"system", 100, false},
		{"Steward", 40, false},
		{"40", 40, false},
		{"75", 75, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"manager", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseRole(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCLIActorDefaults(t *testing.T) {
	resetGlobalFlags()

	actor, err := cliActor()
	require.NoError(t, err)
	assert.Equal(t, "cli", actor.ID)
	assert.Equal(t, 10, actor.RoleLevel)
	assert.Equal(t, models.ActorTypeUser, actor.Type)
}

func TestCLIActorFromFlags(t *testing.T) {
	resetGlobalFlags()
	claimActorID = "m.okafor"
	claimRole = "officer"
	defer resetGlobalFlags()

	actor, err := cliActor()
	require.NoError(t, err)
	assert.Equal(t, "m.okafor", actor.ID)
	assert.Equal(t, 60, actor.RoleLevel)
}

func TestCLIActorInvalidRole(t *testing.T) {
	resetGlobalFlags()
	claimRole = "bogus"
	defer resetGlobalFlags()

	_, err := cliActor()
	require.Error(t, err)
	assert.Equal(t, ExitInvalidArgs, ExitCode(err))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "a long s...", truncate("a long string here", 11))
	assert.Equal(t, "ab", truncate("abcd", 2))
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"cli invalid args", ErrInvalidArgs("bad"), ExitInvalidArgs},
		{"cli not found", ErrNotFound("missing"), ExitNotFound},
		{"cli database", ErrDatabase(assert.AnError, "db"), ExitDBError},
		{"shared workflow rejection", cferrors.WorkflowRejected("ILLEGAL_TRANSITION", "no"), ExitWorkflowRejected},
		{"shared conflict", cferrors.ConcurrentConflict("lost race"), ExitConcurrentConflict},
		{"shared not found", cferrors.NotFound("claim"), ExitNotFound},
		{"plain error", assert.AnError, ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestFormatErrorMessage(t *testing.T) {
	err := ErrNotFoundWithSuggestion(SuggestListOrgs, "organization %s not found", "ACME")
	msg := FormatErrorMessage(err)
	assert.Contains(t, msg, "Error: organization ACME not found")
	assert.Contains(t, msg, "Suggestion: Run 'claimflow org list'")

	shared := cferrors.NotFound("claim ACME-1 not found").WithSuggestion("File it first.")
	msg = FormatErrorMessage(shared)
	assert.Contains(t, msg, "Error: claim ACME-1 not found")
	assert.Contains(t, msg, "Suggestion: File it first.")

	msg = FormatErrorMessage(assert.AnError)
	assert.Contains(t, msg, "Error: ")
}

func TestShortCommitAndDate(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	defer func() { GitCommit, BuildDate = origCommit, origDate }()

	GitCommit = "9f61316deadbeef"
	BuildDate = "2026-02-02T10:00:00Z"
	assert.Equal(t, "9f61316", shortCommit())
	assert.Equal(t, "2026-02-02", shortDate())

	GitCommit = "abc"
	BuildDate = "dev"
	assert.Equal(t, "abc", shortCommit())
	assert.Equal(t, "dev", shortDate())
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "", expandPath(""))
	assert.Equal(t, "/tmp/x.db", expandPath("/tmp/x.db"))
	assert.NotContains(t, expandPath("~/claimflow.db"), "~")
}
