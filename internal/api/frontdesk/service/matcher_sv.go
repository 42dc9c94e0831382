package frontdeskService

import (
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/llm"
	"frontdesk/pkg/nlp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

// Disambiguation is the choice among several candidates. Index is -1 when the
// model said none of them fit. FailSafe marks a fallback to the first candidate.
type Disambiguation struct {
	Index    int
	FailSafe bool
	Reason   string
}

// Match runs the lexical stage, then the keyword stage only when the lexical
// stage found nothing, then disambiguation. A match records one usage.
func (s *knowledgeService) Match(ctx context.Context, question string) (*entity.KnowledgeEntry, error) {
	requestID := contextPkg.GetRequestID(ctx)
	terms := nlp.ExtractKeywords(question)

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return nil, err
	}

	stage := "lexical"
	candidates, err := repo.Knowledge.SearchEntries(ctx, terms, s.cfg.LexicalCandidates)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		stage = "keyword"
		candidates, err = repo.Knowledge.FindEntriesByKeywords(ctx, terms, s.cfg.KeywordCandidates)
		if err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"terms":      terms,
		}).Debug("No knowledge candidates")
		return nil, nil
	}

	choice := s.disambiguate(ctx, question, candidates)
	if choice.Index < 0 {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"stage":      stage,
			"candidates": len(candidates),
		}).Debug("No candidate answers the question")
		return nil, nil
	}

	chosen := candidates[choice.Index]

	updated, err := repo.Knowledge.RecordEntryUsage(ctx, chosen.ID, time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"entry_id":   chosen.ID,
			"error":      err.Error(),
		}).Warn("Failed to record knowledge usage")
		return &chosen, nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"entry_id":   updated.ID,
		"stage":      stage,
		"fail_safe":  choice.FailSafe,
	}).Info("Knowledge match")

	return &updated, nil
}

func (s *knowledgeService) disambiguate(ctx context.Context, question string, candidates []entity.KnowledgeEntry) Disambiguation {
	requestID := contextPkg.GetRequestID(ctx)

	if len(candidates) == 1 {
		return Disambiguation{Index: 0, Reason: "single candidate"}
	}

	if s.completer == nil {
		return Disambiguation{Index: 0, FailSafe: true, Reason: "no inference provider configured"}
	}

	inferCtx, cancel := context.WithTimeout(ctx, s.cfg.InferenceTimeout)
	defer cancel()

	reply, err := s.completer.Complete(inferCtx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: disambiguationPrompt(question, candidates)},
		},
		MaxTokens:   disambiguationMaxTokens,
		Temperature: disambiguationTemperature,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Disambiguation failed, using first candidate")
		return Disambiguation{Index: 0, FailSafe: true, Reason: "inference failed: " + err.Error()}
	}

	index, none, ok := parseDisambiguationReply(reply, len(candidates))
	switch {
	case none:
		return Disambiguation{Index: -1, Reason: "model chose none"}
	case !ok:
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"reply":      reply,
		}).Warn("Unparseable disambiguation reply, using first candidate")
		return Disambiguation{Index: 0, FailSafe: true, Reason: "unparseable reply"}
	default:
		return Disambiguation{Index: index, Reason: "model choice"}
	}
}
