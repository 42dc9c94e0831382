package frontdeskHandler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"frontdesk/internal/api/frontdesk"
	frontdeskService "frontdesk/internal/api/frontdesk/service"
	"frontdesk/internal/entity"
	"frontdesk/internal/middleware"
	jwtPkg "frontdesk/pkg/jwt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCallService struct {
	result   frontdesk.UtteranceResult
	err      error
	lastText string
	closed   []string
}

func (f *fakeCallService) OpenSession(ctx context.Context, sessionKey, customerPhone, customerName string) (entity.Conversation, error) {
	return entity.Conversation{SessionKey: sessionKey, CustomerPhone: customerPhone, CustomerName: customerName, StartedAt: time.Now()}, nil
}

func (f *fakeCallService) HandleUtterance(ctx context.Context, sessionKey, text string) (frontdesk.UtteranceResult, error) {
	f.lastText = text
	if sessionKey != "call-1" {
		return frontdesk.UtteranceResult{}, frontdesk.ErrSessionNotFound
	}
	return f.result, f.err
}

func (f *fakeCallService) CloseSession(ctx context.Context, sessionKey string) error {
	f.closed = append(f.closed, sessionKey)
	return nil
}

func (f *fakeCallService) GetSession(ctx context.Context, sessionKey string) (entity.Conversation, error) {
	if sessionKey != "call-1" {
		return entity.Conversation{}, frontdesk.ErrSessionNotFound
	}
	return entity.Conversation{SessionKey: sessionKey}, nil
}

type fakeHelpRequestService struct {
	resolveErr  error
	lastResolve frontdesk.ResolveHelpRequest
}

func (f *fakeHelpRequestService) Create(ctx context.Context, req frontdesk.CreateHelpRequest) (entity.HelpRequest, error) {
	return entity.HelpRequest{}, nil
}

func (f *fakeHelpRequestService) Resolve(ctx context.Context, id string, req frontdesk.ResolveHelpRequest) (entity.HelpRequest, error) {
	f.lastResolve = req
	if f.resolveErr != nil {
		return entity.HelpRequest{}, f.resolveErr
	}
	now := time.Now()
	return entity.HelpRequest{
		ID:                 id,
		Status:             entity.HelpRequestStatusResolved,
		SupervisorResponse: req.SupervisorResponse,
		SupervisorName:     req.SupervisorName,
		RespondedAt:        &now,
	}, nil
}

func (f *fakeHelpRequestService) GetByID(ctx context.Context, id string) (entity.HelpRequest, error) {
	return entity.HelpRequest{}, frontdesk.ErrHelpRequestNotFound
}

func (f *fakeHelpRequestService) ListByStatus(ctx context.Context, status entity.HelpRequestStatus) ([]entity.HelpRequest, error) {
	return nil, nil
}

func (f *fakeHelpRequestService) ListPending(ctx context.Context) ([]entity.HelpRequest, error) {
	return []entity.HelpRequest{{ID: "HR1", Status: entity.HelpRequestStatusPending}}, nil
}

func (f *fakeHelpRequestService) ListAll(ctx context.Context, status string, limit int) ([]entity.HelpRequest, error) {
	if status != "" && !entity.IsValidHelpRequestStatus(strings.ToUpper(status)) {
		return nil, frontdesk.ErrInvalidStatus
	}
	return nil, nil
}

func (f *fakeHelpRequestService) Statistics(ctx context.Context) (entity.HelpRequestStats, error) {
	return entity.HelpRequestStats{Pending: 1, Resolved: 1, Total: 2, ResolutionRate: "50.0"}, nil
}

type fakeKnowledgeService struct {
	match *entity.KnowledgeEntry
}

func (f *fakeKnowledgeService) Match(ctx context.Context, question string) (*entity.KnowledgeEntry, error) {
	return f.match, nil
}

func (f *fakeKnowledgeService) AddKnowledge(ctx context.Context, req frontdeskService.AddKnowledge) (entity.KnowledgeEntry, error) {
	return entity.KnowledgeEntry{ID: "K1", Question: req.Question, Answer: req.Answer, Provenance: req.Provenance, IsActive: true}, nil
}

func (f *fakeKnowledgeService) ListLearnedAnswers(ctx context.Context, limit int) ([]entity.KnowledgeEntry, error) {
	return []entity.KnowledgeEntry{{ID: "K1"}}, nil
}

func (f *fakeKnowledgeService) SetActive(ctx context.Context, id string, active bool) (entity.KnowledgeEntry, error) {
	return entity.KnowledgeEntry{}, frontdesk.ErrKnowledgeNotFound
}

func (f *fakeKnowledgeService) SeedInitialKnowledge(ctx context.Context) (int, error) {
	return 0, nil
}

type fakeRedis struct {
	messages chan string
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, payload []byte) error {
	f.messages <- string(payload)
	return nil
}

func (f *fakeRedis) Subscribe(ctx context.Context, channel string) (<-chan string, func() error, error) {
	return f.messages, func() error { return nil }, nil
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }
func (f *fakeRedis) Close() error                   { return nil }

type testServer struct {
	app       *fiber.App
	calls     *fakeCallService
	help      *fakeHelpRequestService
	knowledge *fakeKnowledgeService
	redis     *fakeRedis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv := &testServer{
		app: fiber.New(fiber.Config{
			JSONEncoder: jsoniter.Marshal,
			JSONDecoder: jsoniter.Unmarshal,
		}),
		calls:     &fakeCallService{},
		help:      &fakeHelpRequestService{},
		knowledge: &fakeKnowledgeService{},
		redis:     &fakeRedis{messages: make(chan string, 1)},
	}

	mw := middleware.New(logger)
	srv.app.Use(mw.NewRequestIDMiddleware())
	New(logger, validator.New(), mw, srv.calls, srv.help, srv.knowledge, srv.redis).Start(srv.app.Group("/api/v1"))

	return srv
}

func (s *testServer) do(t *testing.T, method, path, body, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		_ = jsoniter.Unmarshal(raw, &decoded)
	}
	return resp.StatusCode, decoded
}

func supervisorToken(t *testing.T) string {
	t.Helper()
	t.Setenv(middleware.SupervisorTokenSecret, "handler-test-secret")
	token, _, err := jwtPkg.Sign(map[string]interface{}{"sub": "sup-1", "name": "Alex"}, time.Hour, middleware.SupervisorTokenSecret)
	require.NoError(t, err)
	return token
}

func TestOpenSession(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodPost, "/api/v1/calls/sessions", `{"session_key":"call-1","customer_phone":"+15550100","customer_name":"Dana"}`, "")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "call-1", body["session_key"])
	assert.Equal(t, []interface{}{}, body["history"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/calls/sessions", `{"session_key":"call-1"}`, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestHandleUtterance(t *testing.T) {
	srv := newTestServer(t)
	srv.calls.result = frontdesk.UtteranceResult{Reply: "We are open 9 to 6."}

	status, body := srv.do(t, http.MethodPost, "/api/v1/calls/sessions/call-1/utterances", `{"text":"When are you open?"}`, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "We are open 9 to 6.", body["reply"])
	assert.Equal(t, false, body["escalated"])
	assert.Equal(t, "When are you open?", srv.calls.lastText)

	status, body = srv.do(t, http.MethodPost, "/api/v1/calls/sessions/other/utterances", `{"text":"Hello"}`, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "SESSION_NOT_FOUND", body["code"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/calls/sessions/call-1/utterances", `{"text":""}`, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestHandleUtteranceEscalationFailureKeepsReply(t *testing.T) {
	srv := newTestServer(t)
	srv.calls.result = frontdesk.UtteranceResult{Reply: frontdeskService.EscalationFailedReply, Escalated: true}
	srv.calls.err = frontdesk.ErrEscalationFailed

	status, body := srv.do(t, http.MethodPost, "/api/v1/calls/sessions/call-1/utterances", `{"text":"Cancel my contract"}`, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "ESCALATION_FAILED", body["code"])
	assert.Equal(t, frontdeskService.EscalationFailedReply, body["reply"])
	assert.Equal(t, true, body["escalated"])
}

func TestSessionLifecycleRoutes(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodGet, "/api/v1/calls/sessions/call-1", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "call-1", body["session_key"])

	status, _ = srv.do(t, http.MethodGet, "/api/v1/calls/sessions/nope", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = srv.do(t, http.MethodDelete, "/api/v1/calls/sessions/call-1", "", "")
	assert.Equal(t, fiber.StatusNoContent, status)
	assert.Equal(t, []string{"call-1"}, srv.calls.closed)

	status, _ = srv.do(t, http.MethodGet, "/api/v1/calls/sessions/call-1/stream", "", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}

func TestRespondToHelpRequest(t *testing.T) {
	srv := newTestServer(t)
	token := supervisorToken(t)

	status, body := srv.do(t, http.MethodPost, "/api/v1/help-requests/HR1/respond", `{"supervisor_response":"Yes."}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/help-requests/HR1/respond", `{"supervisor_response":"Yes, Saturdays."}`, token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "RESOLVED", body["status"])
	assert.Equal(t, "Alex", srv.help.lastResolve.SupervisorName)
	assert.True(t, srv.help.lastResolve.IsResolved())

	status, _ = srv.do(t, http.MethodPost, "/api/v1/help-requests/HR1/respond", `{"supervisor_response":"No.","supervisor_name":"Jordan","resolved":false}`, token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Jordan", srv.help.lastResolve.SupervisorName)
	assert.False(t, srv.help.lastResolve.IsResolved())

	status, body = srv.do(t, http.MethodPost, "/api/v1/help-requests/HR1/respond", `{}`, token)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	srv.help.resolveErr = frontdesk.ErrInvalidTransition
	status, body = srv.do(t, http.MethodPost, "/api/v1/help-requests/HR1/respond", `{"supervisor_response":"Again."}`, token)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "HELP_REQUEST_ALREADY_HANDLED", body["code"])
}

func TestHelpRequestQueries(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodGet, "/api/v1/help-requests/pending", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	status, body = srv.do(t, http.MethodGet, "/api/v1/help-requests/stats", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "50.0", body["resolution_rate"])

	status, body = srv.do(t, http.MethodGet, "/api/v1/help-requests?status=bogus", "", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_HELP_REQUEST_STATUS", body["code"])

	status, body = srv.do(t, http.MethodGet, "/api/v1/help-requests?status=pending", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []interface{}{}, body["help_requests"])

	status, body = srv.do(t, http.MethodGet, "/api/v1/help-requests/HR404", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "HELP_REQUEST_NOT_FOUND", body["code"])

	status, _ = srv.do(t, http.MethodGet, "/api/v1/help-requests/events", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestKnowledgeRoutes(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodPost, "/api/v1/knowledge/search", `{"question":"Do you sell hats?"}`, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["found"])

	srv.knowledge.match = &entity.KnowledgeEntry{ID: "K1", Answer: "We are open 9 to 6."}
	status, body = srv.do(t, http.MethodPost, "/api/v1/knowledge/search", `{"question":"When are you open?"}`, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, "We are open 9 to 6.", body["answer"])

	status, body = srv.do(t, http.MethodPost, "/api/v1/knowledge", `{"question":"Parking?","answer":"Free, behind the building."}`, "")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "MANUAL", body["provenance"])

	status, body = srv.do(t, http.MethodGet, "/api/v1/knowledge", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	token := supervisorToken(t)
	status, body = srv.do(t, http.MethodPatch, "/api/v1/knowledge/K9/active", `{"is_active":false}`, token)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "KNOWLEDGE_ENTRY_NOT_FOUND", body["code"])

	status, _ = srv.do(t, http.MethodPatch, "/api/v1/knowledge/K9/active", `{}`, token)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
