package frontdeskService

import (
	"errors"
	"frontdesk/internal/api/frontdesk"
	"frontdesk/internal/api/frontdesk/session"
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/llm"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"strings"
)

// Generation is the outcome of open generation. Failed means the text is a
// fixed apology and the question must be escalated.
type Generation struct {
	Text   string
	Failed bool
	Reason string
}

type callService struct {
	log          *logrus.Logger
	store        *session.Store
	knowledge    IKnowledgeService
	escalation   IEscalationPolicy
	helpRequests IHelpRequestService
	completer    llm.ICompleter
	archive      ITranscriptArchive
	cfg          Config
}

func NewCallService(
	log *logrus.Logger,
	store *session.Store,
	knowledge IKnowledgeService,
	escalation IEscalationPolicy,
	helpRequests IHelpRequestService,
	completer llm.ICompleter,
	archive ITranscriptArchive,
	cfg Config,
) ICallService {
	return &callService{
		log:          log,
		store:        store,
		knowledge:    knowledge,
		escalation:   escalation,
		helpRequests: helpRequests,
		completer:    completer,
		archive:      archive,
		cfg:          cfg,
	}
}

// OpenSession starts a fresh conversation. A live session under the same key is
// replaced, never merged.
func (s *callService) OpenSession(ctx context.Context, sessionKey, customerPhone, customerName string) (entity.Conversation, error) {
	requestID := contextPkg.GetRequestID(ctx)

	sessionKey = strings.TrimSpace(sessionKey)
	customerPhone = strings.TrimSpace(customerPhone)
	if sessionKey == "" || customerPhone == "" {
		return entity.Conversation{}, frontdesk.ErrMissingFields
	}

	created, replaced := s.store.Open(sessionKey, customerPhone, strings.TrimSpace(customerName))
	if replaced != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"session_key": sessionKey,
			"turns":       replaced.Len(),
		}).Warn("Session replaced by a new call")
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"session_key": sessionKey,
	}).Info("Session opened")

	return created.Snapshot(), nil
}

func (s *callService) GetSession(ctx context.Context, sessionKey string) (entity.Conversation, error) {
	sess, ok := s.store.Get(sessionKey)
	if !ok {
		return entity.Conversation{}, frontdesk.ErrSessionNotFound
	}
	return sess.Snapshot(), nil
}

// CloseSession is idempotent. The transcript is archived best effort.
func (s *callService) CloseSession(ctx context.Context, sessionKey string) error {
	requestID := contextPkg.GetRequestID(ctx)

	sess := s.store.Close(sessionKey)
	if sess == nil {
		return nil
	}

	conv := sess.Snapshot()
	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"session_key": sessionKey,
		"turns":       len(conv.History),
	}).Info("Session closed")

	if s.archive == nil || len(conv.History) == 0 {
		return nil
	}

	location, err := s.archive.Archive(ctx, conv)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"session_key": sessionKey,
			"error":       err.Error(),
		}).Warn("Failed to archive transcript")
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"session_key": sessionKey,
		"location":    location,
	}).Debug("Transcript archived")

	return nil
}

// HandleUtterance answers one customer utterance. Utterances of the same
// session run one at a time. When the help request for an escalation cannot be
// stored, the result still carries a reply for the customer alongside
// ErrEscalationFailed.
func (s *callService) HandleUtterance(ctx context.Context, sessionKey, text string) (frontdesk.UtteranceResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return frontdesk.UtteranceResult{}, frontdesk.ErrMissingFields
	}

	sess, ok := s.store.Get(sessionKey)
	if !ok {
		return frontdesk.UtteranceResult{}, frontdesk.ErrSessionNotFound
	}

	ctx = contextPkg.WithSessionKey(ctx, sessionKey)
	requestID := contextPkg.GetRequestID(ctx)

	sess.Lock()
	defer sess.Unlock()
	defer func() {
		if sess.Closed() {
			s.log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"session_key": sessionKey,
			}).Warn("Session closed while an utterance was in flight")
		}
	}()

	sess.Append(entity.SpeakerUser, text, s.store.Now())

	entry, err := s.knowledge.Match(ctx, text)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"session_key": sessionKey,
			"error":       err.Error(),
		}).Error("Knowledge match failed, continuing without a match")
		entry = nil
	}

	if entry != nil {
		sess.Append(entity.SpeakerAssistant, entry.Answer, s.store.Now())
		return frontdesk.UtteranceResult{Reply: entry.Answer}, nil
	}

	decision := s.escalation.Decide(ctx, text, sess.Recent(s.cfg.HistoryContextTurns))
	if decision.Escalate {
		return s.escalate(ctx, sess, text, Deflection(sess.CustomerName()))
	}

	gen := s.generate(ctx, sess)
	if gen.Failed {
		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"session_key": sessionKey,
			"reason":      gen.Reason,
		}).Warn("Generation failed, escalating")
		return s.escalate(ctx, sess, text, gen.Text)
	}

	sess.Append(entity.SpeakerAssistant, gen.Text, s.store.Now())
	return frontdesk.UtteranceResult{Reply: gen.Text}, nil
}

func (s *callService) escalate(ctx context.Context, sess *session.Session, question, reply string) (frontdesk.UtteranceResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	hr, err := s.helpRequests.Create(ctx, frontdesk.CreateHelpRequest{
		CustomerPhone: sess.CustomerPhone(),
		CustomerName:  sess.CustomerName(),
		Question:      question,
		Context:       FormatContext(sess.Recent(s.cfg.HistoryContextTurns)),
		SessionKey:    sess.Key(),
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"session_key": sess.Key(),
			"error":       err.Error(),
		}).Error("Failed to create help request")

		sess.Append(entity.SpeakerAssistant, EscalationFailedReply, s.store.Now())
		return frontdesk.UtteranceResult{Reply: EscalationFailedReply, Escalated: true}, frontdesk.ErrEscalationFailed
	}

	sess.Append(entity.SpeakerAssistant, reply, s.store.Now())
	return frontdesk.UtteranceResult{
		Reply:         reply,
		Escalated:     true,
		HelpRequestID: hr.ID,
	}, nil
}

func (s *callService) generate(ctx context.Context, sess *session.Session) Generation {
	if s.completer == nil {
		return Generation{Text: GenerationErrorReply, Failed: true, Reason: "no inference provider configured"}
	}

	recent := sess.Recent(s.cfg.GenerationHistoryTurns)
	messages := make([]llm.Message, 0, len(recent))
	for _, turn := range recent {
		role := llm.RoleUser
		if turn.Speaker == entity.SpeakerAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Text})
	}

	inferCtx, cancel := context.WithTimeout(ctx, s.cfg.InferenceTimeout)
	defer cancel()

	reply, err := s.completer.Complete(inferCtx, llm.CompletionRequest{
		SystemPrompt: generationSystemPrompt(s.cfg.CompanyName),
		Messages:     messages,
		MaxTokens:    generationMaxTokens,
		Temperature:  generationTemperature,
	})
	switch {
	case errors.Is(err, llm.ErrEmptyCompletion):
		return Generation{Text: EmptyGenerationReply, Failed: true, Reason: "empty completion"}
	case err != nil:
		return Generation{Text: GenerationErrorReply, Failed: true, Reason: err.Error()}
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Generation{Text: EmptyGenerationReply, Failed: true, Reason: "empty completion"}
	}

	return Generation{Text: reply}
}
