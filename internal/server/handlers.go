package server

import (
	"encoding/json"
	goerrors "errors"
	"net/http"
	"strconv"

	"github.com/unionhall/claimflow/internal/common"
	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/errors"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/service"
	"github.com/unionhall/claimflow/internal/workflow"
)

// Actor identity headers. Authentication happens upstream; the API
// trusts these headers the way it would trust a verified session.
const (
	headerActorID        = "X-Actor-Id"
	headerActorRoleLevel = "X-Actor-Role-Level"
)

// API Response types

// OrgResponse represents an organization in API responses.
type OrgResponse struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ClaimResponse represents a claim in API responses.
type ClaimResponse struct {
	ID              int64  `json:"id"`
	Key             string `json:"claim_key"`
	OrgKey          string `json:"org_key"`
	Number          int    `json:"number"`
	Title           string `json:"title"`
	Claimant        string `json:"claimant,omitempty"`
	Status          string `json:"status"`
	Priority        string `json:"priority"`
	StatusEnteredAt string `json:"status_entered_at"`
	ResolvedAt      string `json:"resolved_at,omitempty"`
	ClosedAt        string `json:"closed_at,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// SignalResponse represents a signal in API responses.
type SignalResponse struct {
	ID         int64  `json:"id"`
	ClaimKey   string `json:"claim_key"`
	Kind       string `json:"kind"`
	Severity   string `json:"severity"`
	RaisedBy   string `json:"raised_by,omitempty"`
	RaisedAt   string `json:"raised_at"`
	ResolvedAt string `json:"resolved_at,omitempty"`
	Note       string `json:"note,omitempty"`
	Active     bool   `json:"active"`
}

// ActivityResponse represents an activity log entry in API responses.
type ActivityResponse struct {
	ID         int64  `json:"id"`
	ClaimKey   string `json:"claim_key"`
	Action     string `json:"action"`
	ActorType  string `json:"actor_type"`
	ActorID    string `json:"actor_id,omitempty"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`
	ReasonCode string `json:"reason_code,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Details    string `json:"details,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// TransitionResponse represents an accepted transition in API responses.
type TransitionResponse struct {
	Claim    ClaimResponse `json:"claim"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Warnings []string      `json:"warnings,omitempty"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       int    `json:"code"`
	Message    string `json:"message,omitempty"`
	ReasonCode string `json:"reason_code,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Message: message,
	})
}

// writeSharedError writes an error response using the shared error type.
// It automatically maps the error kind to the appropriate HTTP status code.
func writeSharedError(w http.ResponseWriter, err error) {
	var appErr *errors.Error
	if !goerrors.As(err, &appErr) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, appErr.HTTPStatus(), ErrorResponse{
		Error:      http.StatusText(appErr.HTTPStatus()),
		Code:       appErr.HTTPStatus(),
		Message:    appErr.Message,
		ReasonCode: appErr.ReasonCode,
	})
}

// actorFromRequest builds the acting identity from request headers.
// Absent headers yield an anonymous member, which can read everything
// and perform member-level operations only.
func actorFromRequest(r *http.Request) service.Actor {
	actor := service.Actor{
		ID:        r.Header.Get(headerActorID),
		RoleLevel: workflow.LevelMember,
		Type:      models.ActorTypeUser,
	}
	if actor.ID == "" {
		actor.ID = "anonymous"
	}
	if raw := r.Header.Get(headerActorRoleLevel); raw != "" {
		if level, err := strconv.Atoi(raw); err == nil {
			actor.RoleLevel = level
		}
	}
	return actor
}

// claimKeyFromPath parses the {key} path segment as a full ORG-NUMBER key.
func claimKeyFromPath(r *http.Request) (string, int, error) {
	orgKey, number, err := common.ParseClaimKey(r.PathValue("key"))
	if err != nil {
		return "", 0, err
	}
	if orgKey == "" {
		return "", 0, common.ErrInvalidClaimKey
	}
	return orgKey, number, nil
}

// Organization handlers

func (s *Server) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	repo := db.NewOrgRepo(s.config.DB)
	orgs, err := repo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := make([]OrgResponse, 0, len(orgs))
	for _, o := range orgs {
		response = append(response, orgToResponse(o))
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org := &models.Organization{Key: req.Key, Name: req.Name}
	if err := db.NewOrgRepo(s.config.DB).Create(org); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, orgToResponse(org))
}

func (s *Server) handleGetOrg(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	org, err := db.NewOrgRepo(s.config.DB).GetByKey(key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if org == nil {
		writeError(w, http.StatusNotFound, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, orgToResponse(org))
}

// Claim handlers

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	filter := db.ClaimFilter{Limit: 200}

	if orgKey := r.URL.Query().Get("org"); orgKey != "" {
		org, err := db.NewOrgRepo(s.config.DB).GetByKey(orgKey)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if org == nil {
			writeError(w, http.StatusNotFound, "organization not found")
			return
		}
		filter.OrganizationID = &org.ID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.ClaimState(raw)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = &status
	}
	if r.URL.Query().Get("open") == "true" {
		filter.Open = true
	}

	claims, err := s.claims.List(filter)
	if err != nil {
		writeSharedError(w, err)
		return
	}

	response := make([]ClaimResponse, 0, len(claims))
	for _, c := range claims {
		response = append(response, claimToResponse(c))
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleFileClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Org      string `json:"org"`
		Title    string `json:"title"`
		Claimant string `json:"claimant"`
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claim, err := s.claims.File(req.Org, req.Title, req.Claimant, models.Priority(req.Priority), actorFromRequest(r))
	if err != nil {
		writeSharedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claimToResponse(claim))
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	orgKey, number, err := claimKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claim, err := s.claims.Get(orgKey, number)
	if err != nil {
		writeSharedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimToResponse(claim))
}

// handlePatchClaim updates claim fields. A status field in the body is
// a transition request and goes through the workflow engine. Status and
// field edits cannot be combined in one request; a rejected transition
// must leave the claim untouched, and a combined body could not honor
// that.
func (s *Server) handlePatchClaim(w http.ResponseWriter, r *http.Request) {
	orgKey, number, err := claimKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Title    *string `json:"title"`
		Claimant *string `json:"claimant"`
		Priority *string `json:"priority"`
		Status   *string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := actorFromRequest(r)

	if req.Status != nil {
		if req.Title != nil || req.Claimant != nil || req.Priority != nil {
			writeError(w, http.StatusBadRequest, "status cannot be combined with field updates; send separate requests")
			return
		}
		result, err := s.claims.Transition(orgKey, number, models.ClaimState(*req.Status), actor)
		if err != nil {
			writeSharedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, transitionToResponse(result))
		return
	}

	var priority *models.Priority
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		priority = &p
	}

	claim, err := s.claims.UpdateFields(orgKey, number, req.Title, req.Claimant, priority, actor)
	if err != nil {
		writeSharedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimToResponse(claim))
}

// handleCloseClaim archives a claim by moving it to closed. Claims are
// never deleted from the store.
func (s *Server) handleCloseClaim(w http.ResponseWriter, r *http.Request) {
	orgKey, number, err := claimKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.claims.Close(orgKey, number, actorFromRequest(r))
	if err != nil {
		writeSharedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionToResponse(result))
}

func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	orgKey, number, err := claimKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	options, err := s.claims.AllowedTransitions(orgKey, number, actorFromRequest(r))
	if err != nil {
		writeSharedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	orgKey, number, err := claimKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.claims.Activity(orgKey, number, limit)
	if err != nil {
		writeSharedError(w, err)
		return
	}

	response := make([]ActivityResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, activityToResponse(e))
	}
	writeJSON(w, http.StatusOK, response)
}

// Signal handlers

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	orgKey, number, err := claimKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	signals, err := s.claims.Signals(orgKey, number)
	if err != nil {
		writeSharedError(w, err)
		return
	}

	response := make([]SignalResponse, 0, len(signals))
	for _, sig := range signals {
		response = append(response, signalToResponse(sig))
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleRaiseSignal(w http.ResponseWriter, r *http.Request) {
	orgKey, number, err := claimKeyFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Kind     string `json:"kind"`
		Severity string `json:"severity"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sig, err := s.claims.RaiseSignal(orgKey, number,
		models.SignalKind(req.Kind), models.Severity(req.Severity), req.Note, actorFromRequest(r))
	if err != nil {
		writeSharedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, signalToResponse(sig))
}

func (s *Server) handleResolveSignal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signal id")
		return
	}

	sig, err := s.claims.ResolveSignal(id, actorFromRequest(r))
	if err != nil {
		writeSharedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signalToResponse(sig))
}

// Status handler

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := s.status.GetSummary(r.URL.Query().Get("org"))
	if err != nil {
		writeSharedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Response converters

func orgToResponse(o *models.Organization) OrgResponse {
	return OrgResponse{
		ID:        o.ID,
		Key:       o.Key,
		Name:      o.Name,
		CreatedAt: db.FormatTime(o.CreatedAt),
		UpdatedAt: db.FormatTime(o.UpdatedAt),
	}
}

func claimToResponse(c *models.Claim) ClaimResponse {
	resp := ClaimResponse{
		ID:              c.ID,
		Key:             c.Key(),
		OrgKey:          c.OrgKey,
		Number:          c.Number,
		Title:           c.Title,
		Claimant:        c.Claimant,
		Status:          string(c.Status),
		Priority:        string(c.Priority),
		StatusEnteredAt: db.FormatTime(c.StatusEnteredAt),
		CreatedAt:       db.FormatTime(c.CreatedAt),
		UpdatedAt:       db.FormatTime(c.UpdatedAt),
	}
	if c.ResolvedAt != nil {
		resp.ResolvedAt = db.FormatTime(*c.ResolvedAt)
	}
	if c.ClosedAt != nil {
		resp.ClosedAt = db.FormatTime(*c.ClosedAt)
	}
	return resp
}

func signalToResponse(sig *models.Signal) SignalResponse {
	resp := SignalResponse{
		ID:       sig.ID,
		ClaimKey: sig.ClaimKey,
		Kind:     string(sig.Kind),
		Severity: string(sig.Severity),
		RaisedBy: sig.RaisedBy,
		RaisedAt: db.FormatTime(sig.RaisedAt),
		Note:     sig.Note,
		Active:   sig.IsActive(),
	}
	if sig.ResolvedAt != nil {
		resp.ResolvedAt = db.FormatTime(*sig.ResolvedAt)
	}
	return resp
}

func activityToResponse(a *models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:         a.ID,
		ClaimKey:   a.ClaimKey,
		Action:     string(a.Action),
		ActorType:  string(a.ActorType),
		ActorID:    a.ActorID,
		FromStatus: a.FromStatus,
		ToStatus:   a.ToStatus,
		ReasonCode: a.ReasonCode,
		Summary:    a.Summary,
		Details:    a.Details,
		CreatedAt:  db.FormatTime(a.CreatedAt),
	}
}

func transitionToResponse(result *service.TransitionResult) TransitionResponse {
	return TransitionResponse{
		Claim:    claimToResponse(result.Claim),
		From:     result.From,
		To:       result.To,
		Warnings: result.Warnings,
	}
}
