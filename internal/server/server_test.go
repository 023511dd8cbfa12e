package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/workflow"
)

// setupTestServer creates a test server backed by an in-memory database.
func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()

	d := db.NewTestDB(t)
	t.Cleanup(func() { d.Close() })

	require.NoError(t, db.NewOrgRepo(d.DB).Create(&models.Organization{Key: "ACME", Name: "ACME Local 100"}))

	srv, err := New(Config{Port: 0, Host: "localhost", DB: d.DB})
	require.NoError(t, err)
	return srv, d
}

// doJSON performs a request with an optional JSON body and actor headers.
func doJSON(t *testing.T, srv *Server, method, path string, body interface{}, roleLevel int) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerActorID, "test-actor")
	req.Header.Set(headerActorRoleLevel, strconv.Itoa(roleLevel))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// fileTestClaim files a claim through the API and returns its key.
func fileTestClaim(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/claims", map[string]string{
		"org":      "ACME",
		"title":    "Overtime dispute",
		"claimant": "j.doe",
		"priority": "medium",
	}, workflow.LevelMember)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var claim ClaimResponse
	decodeBody(t, rec, &claim)
	return claim.Key
}

func TestNew(t *testing.T) {
	t.Run("requires database", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is required")
	})

	t.Run("sets defaults", func(t *testing.T) {
		srv, _ := setupTestServer(t)
		assert.Equal(t, "localhost", srv.config.Host)
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/health", nil, workflow.LevelMember)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestOrgEndpoints(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/orgs", map[string]string{
		"key": "local9", "name": "Local 9",
	}, workflow.LevelAdmin)
	require.Equal(t, http.StatusCreated, rec.Code)

	var org OrgResponse
	decodeBody(t, rec, &org)
	assert.Equal(t, "LOCAL9", org.Key)

	rec = doJSON(t, srv, http.MethodGet, "/api/orgs", nil, workflow.LevelMember)
	require.Equal(t, http.StatusOK, rec.Code)
	var orgs []OrgResponse
	decodeBody(t, rec, &orgs)
	assert.Len(t, orgs, 2)

	rec = doJSON(t, srv, http.MethodGet, "/api/orgs/NOPE", nil, workflow.LevelMember)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileAndGetClaim(t *testing.T) {
	srv, _ := setupTestServer(t)
	key := fileTestClaim(t, srv)
	assert.Equal(t, "ACME-1", key)

	rec := doJSON(t, srv, http.MethodGet, "/api/claims/"+key, nil, workflow.LevelMember)
	require.Equal(t, http.StatusOK, rec.Code)

	var claim ClaimResponse
	decodeBody(t, rec, &claim)
	assert.Equal(t, "submitted", claim.Status)
	assert.Equal(t, "j.doe", claim.Claimant)

	rec = doJSON(t, srv, http.MethodGet, "/api/claims/ACME-999", nil, workflow.LevelMember)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/claims/notakey", nil, workflow.LevelMember)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchClaimStatusTransition(t *testing.T) {
	srv, _ := setupTestServer(t)
	key := fileTestClaim(t, srv)

	rec := doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{
		"status": "under_review",
	}, workflow.LevelSteward)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result TransitionResponse
	decodeBody(t, rec, &result)
	assert.Equal(t, "submitted", result.From)
	assert.Equal(t, "under_review", result.To)
	assert.Equal(t, "under_review", result.Claim.Status)
}

func TestPatchClaimStatusDenied(t *testing.T) {
	srv, _ := setupTestServer(t)
	key := fileTestClaim(t, srv)

	// Insufficient role maps to 422 with the engine's message.
	rec := doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{
		"status": "under_review",
	}, workflow.LevelMember)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "INSUFFICIENT_ROLE", errResp.ReasonCode)
	assert.Contains(t, errResp.Message, "Required: 40")

	// Illegal transition also maps to 422.
	rec = doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{
		"status": "closed",
	}, workflow.LevelAdmin)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "ILLEGAL_TRANSITION", errResp.ReasonCode)
}

func TestPatchClaimFields(t *testing.T) {
	srv, _ := setupTestServer(t)
	key := fileTestClaim(t, srv)

	rec := doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{
		"title":    "Overtime dispute (amended)",
		"priority": "urgent",
	}, workflow.LevelSteward)
	require.Equal(t, http.StatusOK, rec.Code)

	var claim ClaimResponse
	decodeBody(t, rec, &claim)
	assert.Equal(t, "Overtime dispute (amended)", claim.Title)
	assert.Equal(t, "urgent", claim.Priority)
	assert.Equal(t, "submitted", claim.Status)
}

func TestPatchClaimRejectsCombinedStatusAndFields(t *testing.T) {
	srv, _ := setupTestServer(t)
	key := fileTestClaim(t, srv)

	rec := doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{
		"title":  "Overtime dispute (amended)",
		"status": "under_review",
	}, workflow.LevelSteward)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing was applied, not even the field edit.
	rec = doJSON(t, srv, http.MethodGet, "/api/claims/"+key, nil, workflow.LevelMember)
	require.Equal(t, http.StatusOK, rec.Code)
	var claim ClaimResponse
	decodeBody(t, rec, &claim)
	assert.Equal(t, "Overtime dispute", claim.Title)
	assert.Equal(t, "submitted", claim.Status)
}

func TestDeleteClosesClaim(t *testing.T) {
	srv, d := setupTestServer(t)
	key := fileTestClaim(t, srv)

	// Not closable from submitted.
	rec := doJSON(t, srv, http.MethodDelete, "/api/claims/"+key, nil, workflow.LevelAdmin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Walk to resolved, age past the cooling-off period, then close.
	rec = doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{"status": "under_review"}, workflow.LevelSteward)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{"status": "resolved"}, workflow.LevelOfficer)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := d.Exec(`UPDATE claims SET status_entered_at = ? WHERE organization_id = 1 AND number = 1`,
		db.FormatTime(time.Now().Add(-8*24*time.Hour)))
	require.NoError(t, err)

	rec = doJSON(t, srv, http.MethodDelete, "/api/claims/"+key, nil, workflow.LevelAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result TransitionResponse
	decodeBody(t, rec, &result)
	assert.Equal(t, "closed", result.Claim.Status)
	assert.NotEmpty(t, result.Claim.ClosedAt)
}

func TestTransitionsEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)
	key := fileTestClaim(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/claims/"+key+"/transitions", nil, workflow.LevelSteward)
	require.Equal(t, http.StatusOK, rec.Code)

	var options []struct {
		To        string `json:"to"`
		Permitted bool   `json:"permitted"`
	}
	decodeBody(t, rec, &options)
	require.Len(t, options, 3)

	permitted := map[string]bool{}
	for _, o := range options {
		permitted[o.To] = o.Permitted
	}
	assert.True(t, permitted["under_review"])
	assert.False(t, permitted["rejected"], "rejection is admin-only")
}

func TestSignalEndpoints(t *testing.T) {
	srv, _ := setupTestServer(t)
	key := fileTestClaim(t, srv)

	rec := doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{"status": "under_review"}, workflow.LevelSteward)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/claims/"+key+"/signals", map[string]string{
		"kind": "SLA_BREACH", "severity": "critical",
	}, workflow.LevelOfficer)
	require.Equal(t, http.StatusCreated, rec.Code)

	var sig SignalResponse
	decodeBody(t, rec, &sig)
	assert.True(t, sig.Active)

	// Blocked resolution while the signal is active.
	rec = doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{"status": "resolved"}, workflow.LevelOfficer)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "CRITICAL_SIGNAL_PRESENT", errResp.ReasonCode)

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/signals/%d/resolve", sig.ID), nil, workflow.LevelOfficer)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &sig)
	assert.False(t, sig.Active)

	rec = doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{"status": "resolved"}, workflow.LevelOfficer)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/claims/"+key+"/signals", nil, workflow.LevelMember)
	require.Equal(t, http.StatusOK, rec.Code)
	var signals []SignalResponse
	decodeBody(t, rec, &signals)
	assert.Len(t, signals, 1)
}

func TestActivityEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)
	key := fileTestClaim(t, srv)

	rec := doJSON(t, srv, http.MethodPatch, "/api/claims/"+key, map[string]string{"status": "under_review"}, workflow.LevelMember)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/claims/"+key+"/activity", nil, workflow.LevelMember)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []ActivityResponse
	decodeBody(t, rec, &entries)
	require.Len(t, entries, 2, "filing plus the denied attempt")
	assert.Equal(t, "status_denied", entries[0].Action)
	assert.Equal(t, "INSUFFICIENT_ROLE", entries[0].ReasonCode)
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)
	fileTestClaim(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/status?org=ACME", nil, workflow.LevelMember)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		OrgKey string         `json:"org_key"`
		Counts map[string]int `json:"counts"`
		Open   int            `json:"open"`
	}
	decodeBody(t, rec, &summary)
	assert.Equal(t, "ACME", summary.OrgKey)
	assert.Equal(t, 1, summary.Counts["submitted"])
	assert.Equal(t, 1, summary.Open)
}
