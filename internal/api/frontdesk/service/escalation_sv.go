package frontdeskService

import (
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/llm"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// EscalationDecision is the outcome of one escalation check. FailSafe marks a
// decision forced by an inference failure or an unrecognised reply.
type EscalationDecision struct {
	Escalate bool
	FailSafe bool
	Reason   string
}

type escalationPolicy struct {
	log       *logrus.Logger
	completer llm.ICompleter
	cfg       Config
}

func NewEscalationPolicy(log *logrus.Logger, completer llm.ICompleter, cfg Config) IEscalationPolicy {
	return &escalationPolicy{
		log:       log,
		completer: completer,
		cfg:       cfg,
	}
}

func (p *escalationPolicy) ShouldEscalate(ctx context.Context, question string, recent []entity.Turn) bool {
	return p.Decide(ctx, question, recent).Escalate
}

// Decide fails closed: anything other than an explicit ANSWER escalates.
func (p *escalationPolicy) Decide(ctx context.Context, question string, recent []entity.Turn) EscalationDecision {
	requestID := contextPkg.GetRequestID(ctx)

	if p.completer == nil {
		return EscalationDecision{Escalate: true, FailSafe: true, Reason: "no inference provider configured"}
	}

	inferCtx, cancel := context.WithTimeout(ctx, p.cfg.InferenceTimeout)
	defer cancel()

	reply, err := p.completer.Complete(inferCtx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: escalationPrompt(question, recent)},
		},
		MaxTokens:   escalationMaxTokens,
		Temperature: escalationTemperature,
	})
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Escalation check failed, escalating")
		return EscalationDecision{Escalate: true, FailSafe: true, Reason: "inference failed: " + err.Error()}
	}

	escalate, ok := parseEscalationReply(reply)
	if !ok {
		p.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"reply":      reply,
		}).Warn("Unrecognised escalation reply, escalating")
		return EscalationDecision{Escalate: true, FailSafe: true, Reason: "unrecognised reply"}
	}

	p.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"escalate":   escalate,
	}).Debug("Escalation decision")

	if escalate {
		return EscalationDecision{Escalate: true, Reason: "model requested escalation"}
	}
	return EscalationDecision{Escalate: false, Reason: "model can answer"}
}
