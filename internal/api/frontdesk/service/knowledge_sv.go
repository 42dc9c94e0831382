package frontdeskService

import (
	"fmt"
	"frontdesk/internal/api/frontdesk"
	frontdeskRepository "frontdesk/internal/api/frontdesk/repository"
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/llm"
	"frontdesk/pkg/nlp"
	"frontdesk/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"strings"
	"time"
)

type AddKnowledge struct {
	Question        string
	Answer          string
	Category        string
	Keywords        []string
	Provenance      entity.Provenance
	SourceRequestID string
}

type knowledgeService struct {
	log       *logrus.Logger
	repo      frontdeskRepository.Repository
	completer llm.ICompleter
	utils     utils.IUtils
	cfg       Config
}

func NewKnowledgeService(
	log *logrus.Logger,
	repo frontdeskRepository.Repository,
	completer llm.ICompleter,
	utils utils.IUtils,
	cfg Config,
) IKnowledgeService {
	return &knowledgeService{
		log:       log,
		repo:      repo,
		completer: completer,
		utils:     utils,
		cfg:       cfg,
	}
}

// newKnowledgeEntry builds a validated entry whose keywords are derived from
// the question and answer, plus any extra tags.
func newKnowledgeEntry(u utils.IUtils, req AddKnowledge, now time.Time) (entity.KnowledgeEntry, error) {
	question := strings.TrimSpace(req.Question)
	answer := strings.TrimSpace(req.Answer)
	if question == "" || answer == "" {
		return entity.KnowledgeEntry{}, frontdesk.ErrMissingFields
	}

	provenance := req.Provenance
	if provenance == "" {
		provenance = entity.ProvenanceManual
	}
	if !entity.IsValidProvenance(string(provenance)) {
		return entity.KnowledgeEntry{}, fmt.Errorf("invalid provenance %q", provenance)
	}

	id, err := u.NewULIDFromTimestamp(now)
	if err != nil {
		return entity.KnowledgeEntry{}, err
	}

	return entity.KnowledgeEntry{
		ID:              id,
		Question:        question,
		Answer:          answer,
		Category:        strings.TrimSpace(req.Category),
		Keywords:        nlp.MergeKeywords(nlp.ExtractKeywords(question+" "+answer), req.Keywords...),
		Provenance:      provenance,
		SourceRequestID: req.SourceRequestID,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *knowledgeService) AddKnowledge(ctx context.Context, req AddKnowledge) (entity.KnowledgeEntry, error) {
	requestID := contextPkg.GetRequestID(ctx)

	entry, err := newKnowledgeEntry(s.utils, req, time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Invalid knowledge entry")
		return entity.KnowledgeEntry{}, err
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.KnowledgeEntry{}, err
	}

	if err := repo.Knowledge.CreateEntry(ctx, entry); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create knowledge entry")
		return entity.KnowledgeEntry{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"entry_id":   entry.ID,
		"provenance": entry.Provenance,
	}).Info("Knowledge entry added")

	return entry, nil
}

func (s *knowledgeService) ListLearnedAnswers(ctx context.Context, limit int) ([]entity.KnowledgeEntry, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if limit <= 0 {
		limit = s.cfg.LearnedAnswersLimit
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return nil, err
	}

	entries, err := repo.Knowledge.ListActiveEntries(ctx, limit)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to list knowledge entries")
		return nil, err
	}

	return entries, nil
}

// SetActive deactivates or reactivates an entry. Entries are never deleted.
func (s *knowledgeService) SetActive(ctx context.Context, id string, active bool) (entity.KnowledgeEntry, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.KnowledgeEntry{}, err
	}

	entry, err := repo.Knowledge.SetEntryActive(ctx, id, active, time.Now())
	if err != nil {
		return entity.KnowledgeEntry{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"entry_id":   id,
		"is_active":  active,
	}).Info("Knowledge entry activity changed")

	return entry, nil
}
