package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMappings(t *testing.T) {
	tests := []struct {
		kind     Kind
		exitCode int
		httpCode int
		name     string
	}{
		{KindInvalidArgs, 2, http.StatusBadRequest, "InvalidArgs"},
		{KindNotFound, 3, http.StatusNotFound, "NotFound"},
		{KindWorkflowRejected, 4, http.StatusUnprocessableEntity, "WorkflowRejected"},
		{KindInternal, 5, http.StatusInternalServerError, "Internal"},
		{KindConcurrentConflict, 6, http.StatusConflict, "ConcurrentConflict"},
		{KindGeneral, 1, http.StatusInternalServerError, "General"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Error{Kind: tt.kind, Message: "boom"}
			assert.Equal(t, tt.exitCode, e.CLIExitCode())
			assert.Equal(t, tt.httpCode, e.HTTPStatus())
			assert.Equal(t, tt.name, tt.kind.String())
		})
	}
}

func TestWorkflowRejected(t *testing.T) {
	e := WorkflowRejected("ILLEGAL_TRANSITION", "invalid transition: submitted -> closed")

	assert.Equal(t, KindWorkflowRejected, e.Kind)
	assert.Equal(t, "ILLEGAL_TRANSITION", e.ReasonCode)
	assert.Equal(t, "invalid transition: submitted -> closed", e.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, e.HTTPStatus())
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	e := WrapInternal(cause, "failed to update claim %s", "ACME-7")

	assert.Equal(t, "failed to update claim ACME-7: disk full", e.Error())
	require.True(t, stderrors.Is(e, cause))

	var target *Error
	require.True(t, stderrors.As(e, &target))
	assert.Equal(t, KindInternal, target.Kind)
}

func TestHelpersOnForeignErrors(t *testing.T) {
	err := fmt.Errorf("plain error")

	assert.Equal(t, KindGeneral, GetKind(err))
	assert.Equal(t, 1, GetCLIExitCode(err))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(err))
	assert.False(t, Is(err, KindNotFound))
}

func TestIs(t *testing.T) {
	e := NotFound("claim %s not found", "ACME-9")
	assert.True(t, Is(e, KindNotFound))
	assert.False(t, Is(e, KindWorkflowRejected))
}
