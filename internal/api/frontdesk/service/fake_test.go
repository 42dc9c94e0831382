package frontdeskService

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"frontdesk/internal/api/frontdesk"
	frontdeskRepository "frontdesk/internal/api/frontdesk/repository"
	"frontdesk/internal/api/frontdesk/session"
	"frontdesk/internal/entity"
	"frontdesk/pkg/llm"
	"frontdesk/pkg/nlp"
	"frontdesk/pkg/utils"

	"github.com/sirupsen/logrus"
)

type memState struct {
	knowledge    map[string]entity.KnowledgeEntry
	helpRequests map[string]entity.HelpRequest
}

func (s memState) clone() memState {
	c := memState{
		knowledge:    make(map[string]entity.KnowledgeEntry, len(s.knowledge)),
		helpRequests: make(map[string]entity.HelpRequest, len(s.helpRequests)),
	}
	for k, v := range s.knowledge {
		c.knowledge[k] = v
	}
	for k, v := range s.helpRequests {
		c.helpRequests[k] = v
	}
	return c
}

// memRepository is an in-memory Repository. The lexical search matches
// question and answer words only; the keyword search matches stored keywords.
type memRepository struct {
	mu    sync.Mutex
	state memState

	searchCalls  int
	keywordCalls int
	usageCalls   int

	searchErr            error
	usageErr             error
	createEntryErr       error
	createHelpRequestErr error
}

func newMemRepository() *memRepository {
	return &memRepository{
		state: memState{
			knowledge:    map[string]entity.KnowledgeEntry{},
			helpRequests: map[string]entity.HelpRequest{},
		},
	}
}

func (r *memRepository) NewClient(tx bool) (frontdeskRepository.Client, error) {
	c := &memClient{repo: r}
	if tx {
		r.mu.Lock()
		staged := r.state.clone()
		r.mu.Unlock()
		c.staged = &staged
	}

	return frontdeskRepository.Client{
		Knowledge:    c,
		HelpRequests: c,
		Commit:       c.commit,
		Rollback:     func() error { return nil },
	}, nil
}

func (r *memRepository) entry(id string) entity.KnowledgeEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.knowledge[id]
}

func (r *memRepository) helpRequest(id string) entity.HelpRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.helpRequests[id]
}

func (r *memRepository) entries() []entity.KnowledgeEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.KnowledgeEntry, 0, len(r.state.knowledge))
	for _, e := range r.state.knowledge {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memRepository) helpRequestCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.helpRequests)
}

type memClient struct {
	repo   *memRepository
	staged *memState
}

// with runs fn against the staged state of a transaction or the live state.
func (c *memClient) with(fn func(st *memState) error) error {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	if c.staged != nil {
		return fn(c.staged)
	}
	return fn(&c.repo.state)
}

func (c *memClient) commit() error {
	if c.staged == nil {
		return nil
	}
	c.repo.mu.Lock()
	c.repo.state = *c.staged
	c.repo.mu.Unlock()
	return nil
}

func (c *memClient) CreateEntry(ctx context.Context, entry entity.KnowledgeEntry) error {
	return c.with(func(st *memState) error {
		if c.repo.createEntryErr != nil {
			return c.repo.createEntryErr
		}
		st.knowledge[entry.ID] = entry
		return nil
	})
}

func (c *memClient) GetEntryByID(ctx context.Context, id string) (entity.KnowledgeEntry, error) {
	var out entity.KnowledgeEntry
	err := c.with(func(st *memState) error {
		e, ok := st.knowledge[id]
		if !ok {
			return frontdesk.ErrKnowledgeNotFound
		}
		out = e
		return nil
	})
	return out, err
}

func (c *memClient) SearchEntries(ctx context.Context, terms []string, limit int) ([]entity.KnowledgeEntry, error) {
	var out []entity.KnowledgeEntry
	err := c.with(func(st *memState) error {
		c.repo.searchCalls++
		if c.repo.searchErr != nil {
			return c.repo.searchErr
		}

		type scored struct {
			entry entity.KnowledgeEntry
			score int
		}
		var hits []scored
		for _, e := range st.knowledge {
			if !e.IsActive {
				continue
			}
			words := map[string]bool{}
			for _, w := range nlp.ExtractKeywords(e.Question + " " + e.Answer) {
				words[w] = true
			}
			score := 0
			for _, t := range terms {
				if words[t] {
					score++
				}
			}
			if score > 0 {
				hits = append(hits, scored{entry: e, score: score})
			}
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].score != hits[j].score {
				return hits[i].score > hits[j].score
			}
			if hits[i].entry.UsageCount != hits[j].entry.UsageCount {
				return hits[i].entry.UsageCount > hits[j].entry.UsageCount
			}
			return hits[i].entry.ID < hits[j].entry.ID
		})
		for i := 0; i < len(hits) && i < limit; i++ {
			out = append(out, hits[i].entry)
		}
		return nil
	})
	return out, err
}

func (c *memClient) FindEntriesByKeywords(ctx context.Context, keywords []string, limit int) ([]entity.KnowledgeEntry, error) {
	var out []entity.KnowledgeEntry
	err := c.with(func(st *memState) error {
		c.repo.keywordCalls++
		wanted := map[string]bool{}
		for _, k := range keywords {
			wanted[k] = true
		}
		var hits []entity.KnowledgeEntry
		for _, e := range st.knowledge {
			if !e.IsActive {
				continue
			}
			for _, k := range e.Keywords {
				if wanted[k] {
					hits = append(hits, e)
					break
				}
			}
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].UsageCount != hits[j].UsageCount {
				return hits[i].UsageCount > hits[j].UsageCount
			}
			return hits[i].ID < hits[j].ID
		})
		if len(hits) > limit {
			hits = hits[:limit]
		}
		out = hits
		return nil
	})
	return out, err
}

func (c *memClient) RecordEntryUsage(ctx context.Context, id string, usedAt time.Time) (entity.KnowledgeEntry, error) {
	var out entity.KnowledgeEntry
	err := c.with(func(st *memState) error {
		c.repo.usageCalls++
		if c.repo.usageErr != nil {
			return c.repo.usageErr
		}
		e, ok := st.knowledge[id]
		if !ok {
			return frontdesk.ErrKnowledgeNotFound
		}
		e.UsageCount++
		e.LastUsedAt = &usedAt
		st.knowledge[id] = e
		out = e
		return nil
	})
	return out, err
}

func (c *memClient) ListActiveEntries(ctx context.Context, limit int) ([]entity.KnowledgeEntry, error) {
	var out []entity.KnowledgeEntry
	err := c.with(func(st *memState) error {
		for _, e := range st.knowledge {
			if e.IsActive {
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (c *memClient) SetEntryActive(ctx context.Context, id string, active bool, updatedAt time.Time) (entity.KnowledgeEntry, error) {
	var out entity.KnowledgeEntry
	err := c.with(func(st *memState) error {
		e, ok := st.knowledge[id]
		if !ok {
			return frontdesk.ErrKnowledgeNotFound
		}
		e.IsActive = active
		e.UpdatedAt = updatedAt
		st.knowledge[id] = e
		out = e
		return nil
	})
	return out, err
}

func (c *memClient) CountEntries(ctx context.Context) (int, error) {
	var n int
	err := c.with(func(st *memState) error {
		n = len(st.knowledge)
		return nil
	})
	return n, err
}

func (c *memClient) CreateHelpRequest(ctx context.Context, hr entity.HelpRequest) error {
	return c.with(func(st *memState) error {
		if c.repo.createHelpRequestErr != nil {
			return c.repo.createHelpRequestErr
		}
		st.helpRequests[hr.ID] = hr
		return nil
	})
}

func (c *memClient) GetHelpRequestByID(ctx context.Context, id string) (entity.HelpRequest, error) {
	var out entity.HelpRequest
	err := c.with(func(st *memState) error {
		hr, ok := st.helpRequests[id]
		if !ok {
			return frontdesk.ErrHelpRequestNotFound
		}
		out = hr
		return nil
	})
	return out, err
}

func (c *memClient) ListHelpRequests(ctx context.Context, status entity.HelpRequestStatus, limit int) ([]entity.HelpRequest, error) {
	var out []entity.HelpRequest
	err := c.with(func(st *memState) error {
		for _, hr := range st.helpRequests {
			if status == "" || hr.Status == status {
				out = append(out, hr)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (c *memClient) RespondToHelpRequest(ctx context.Context, res frontdeskRepository.HelpRequestResolution) (entity.HelpRequest, error) {
	var out entity.HelpRequest
	err := c.with(func(st *memState) error {
		hr, ok := st.helpRequests[res.ID]
		if !ok {
			return frontdesk.ErrHelpRequestNotFound
		}
		if hr.Status != entity.HelpRequestStatusPending {
			return frontdesk.ErrInvalidTransition
		}
		respondedAt := res.RespondedAt
		hr.Status = res.Status
		hr.SupervisorResponse = res.SupervisorResponse
		hr.SupervisorName = res.SupervisorName
		hr.RespondedAt = &respondedAt
		hr.UpdatedAt = respondedAt
		st.helpRequests[res.ID] = hr
		out = hr
		return nil
	})
	return out, err
}

func (c *memClient) CountHelpRequestsByStatus(ctx context.Context) (map[entity.HelpRequestStatus]int, error) {
	counts := map[entity.HelpRequestStatus]int{}
	err := c.with(func(st *memState) error {
		for _, hr := range st.helpRequests {
			counts[hr.Status]++
		}
		return nil
	})
	return counts, err
}

type promptKind int

const (
	kindEscalation promptKind = iota
	kindDisambiguation
	kindGeneration
)

func kindOf(req llm.CompletionRequest) promptKind {
	switch {
	case req.SystemPrompt != "":
		return kindGeneration
	case len(req.Messages) > 0 && strings.HasPrefix(req.Messages[0].Content, "Given the user question"):
		return kindDisambiguation
	default:
		return kindEscalation
	}
}

type reply struct {
	text string
	err  error
}

// mockCompleter answers each prompt kind with a fixed reply and records every call.
type mockCompleter struct {
	mu      sync.Mutex
	calls   []llm.CompletionRequest
	replies map[promptKind]reply
	block   bool
}

func newMockCompleter() *mockCompleter {
	return &mockCompleter{replies: map[promptKind]reply{}}
}

func (m *mockCompleter) on(kind promptKind, text string, err error) *mockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[kind] = reply{text: text, err: err}
	return m
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	r, ok := m.replies[kindOf(req)]
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if !ok {
		return "", llm.ErrEmptyCompletion
	}
	return r.text, r.err
}

func (m *mockCompleter) callsOf(kind promptKind) []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []llm.CompletionRequest
	for _, c := range m.calls {
		if kindOf(c) == kind {
			out = append(out, c)
		}
	}
	return out
}

type recordedEvent struct {
	Type string
	ID   string
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) Publish(ctx context.Context, eventType string, hr entity.HelpRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Type: eventType, ID: hr.ID})
}

func (f *fakeEvents) all() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedEvent(nil), f.events...)
}

type fakeArchive struct {
	mu       sync.Mutex
	archived []entity.Conversation
	err      error
}

func (f *fakeArchive) Archive(ctx context.Context, conv entity.Conversation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, conv)
	return "s3://bucket/" + conv.SessionKey, nil
}

type fakeWhatsapp struct {
	mu   sync.Mutex
	sent map[string]string
}

func (f *fakeWhatsapp) SendMessage(ctx context.Context, phoneNumber, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[phoneNumber] = message
	return nil
}

func (f *fakeWhatsapp) Disconnect() error { return nil }
func (f *fakeWhatsapp) IsConnected() bool { return true }

type testEnv struct {
	repo         *memRepository
	completer    *mockCompleter
	events       *fakeEvents
	archive      *fakeArchive
	whatsapp     *fakeWhatsapp
	store        *session.Store
	knowledge    IKnowledgeService
	escalation   IEscalationPolicy
	helpRequests IHelpRequestService
	calls        ICallService
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := DefaultConfig()
	cfg.InferenceTimeout = 50 * time.Millisecond

	logger := testLogger()
	env := &testEnv{
		repo:      newMemRepository(),
		completer: newMockCompleter(),
		events:    &fakeEvents{},
		archive:   &fakeArchive{},
		whatsapp:  &fakeWhatsapp{},
		store:     session.NewStore(),
	}
	u := utils.New()

	env.knowledge = NewKnowledgeService(logger, env.repo, env.completer, u, cfg)
	env.escalation = NewEscalationPolicy(logger, env.completer, cfg)
	env.helpRequests = NewHelpRequestService(logger, env.repo, u, env.events, env.whatsapp, cfg)
	env.calls = NewCallService(logger, env.store, env.knowledge, env.escalation, env.helpRequests, env.completer, env.archive, cfg)

	return env
}

func (env *testEnv) seed(t *testing.T) {
	t.Helper()
	n, err := env.knowledge.SeedInitialKnowledge(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != len(initialKnowledge) {
		t.Fatalf("seeded %d entries, want %d", n, len(initialKnowledge))
	}
}

func (env *testEnv) entryByQuestion(question string) entity.KnowledgeEntry {
	for _, e := range env.repo.entries() {
		if e.Question == question {
			return e
		}
	}
	return entity.KnowledgeEntry{}
}
