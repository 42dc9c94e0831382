package frontdeskService

import (
	"fmt"
	"frontdesk/internal/api/frontdesk"
	frontdeskRepository "frontdesk/internal/api/frontdesk/repository"
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/utils"
	"frontdesk/pkg/whatsapp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"strings"
	"time"
)

type helpRequestService struct {
	log      *logrus.Logger
	repo     frontdeskRepository.Repository
	utils    utils.IUtils
	events   IEventPublisher
	whatsapp whatsapp.IWhatsappSender
	cfg      Config
}

func NewHelpRequestService(
	log *logrus.Logger,
	repo frontdeskRepository.Repository,
	utils utils.IUtils,
	events IEventPublisher,
	whatsappSender whatsapp.IWhatsappSender,
	cfg Config,
) IHelpRequestService {
	return &helpRequestService{
		log:      log,
		repo:     repo,
		utils:    utils,
		events:   events,
		whatsapp: whatsappSender,
		cfg:      cfg,
	}
}

// Create always records a new PENDING request; repeated questions are not merged.
func (s *helpRequestService) Create(ctx context.Context, req frontdesk.CreateHelpRequest) (entity.HelpRequest, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if strings.TrimSpace(req.CustomerPhone) == "" || strings.TrimSpace(req.Question) == "" {
		return entity.HelpRequest{}, frontdesk.ErrMissingFields
	}

	now := time.Now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return entity.HelpRequest{}, err
	}

	hr := entity.HelpRequest{
		ID:            id,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		Question:      strings.TrimSpace(req.Question),
		Context:       req.Context,
		Status:        entity.HelpRequestStatusPending,
		SessionKey:    req.SessionKey,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.HelpRequest{}, err
	}

	if err := repo.HelpRequests.CreateHelpRequest(ctx, hr); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create help request")
		return entity.HelpRequest{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":      requestID,
		"help_request_id": hr.ID,
		"session_key":     hr.SessionKey,
	}).Info("Help request created")

	if s.events != nil {
		s.events.Publish(ctx, frontdesk.EventHelpRequestCreated, hr)
	}

	return hr, nil
}

// Resolve moves a PENDING request to RESOLVED or UNRESOLVED. A resolved answer
// is written to the knowledge store in the same transaction.
func (s *helpRequestService) Resolve(ctx context.Context, id string, req frontdesk.ResolveHelpRequest) (entity.HelpRequest, error) {
	requestID := contextPkg.GetRequestID(ctx)

	response := strings.TrimSpace(req.SupervisorResponse)
	name := strings.TrimSpace(req.SupervisorName)
	if response == "" || name == "" {
		return entity.HelpRequest{}, frontdesk.ErrMissingFields
	}

	status := entity.HelpRequestStatusResolved
	if !req.IsResolved() {
		status = entity.HelpRequestStatusUnresolved
	}

	repo, err := s.repo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.HelpRequest{}, err
	}

	now := time.Now()
	hr, err := repo.HelpRequests.RespondToHelpRequest(ctx, frontdeskRepository.HelpRequestResolution{
		ID:                 id,
		Status:             status,
		SupervisorResponse: response,
		SupervisorName:     name,
		RespondedAt:        now,
	})
	if err != nil {
		_ = repo.Rollback()
		return entity.HelpRequest{}, err
	}

	if status == entity.HelpRequestStatusResolved {
		entry, err := newKnowledgeEntry(s.utils, AddKnowledge{
			Question:        hr.Question,
			Answer:          response,
			Provenance:      entity.ProvenanceSupervisor,
			SourceRequestID: hr.ID,
		}, now)
		if err != nil {
			_ = repo.Rollback()
			return entity.HelpRequest{}, err
		}

		if err := repo.Knowledge.CreateEntry(ctx, entry); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":      requestID,
				"help_request_id": id,
				"error":           err.Error(),
			}).Error("Failed to learn supervisor answer")
			_ = repo.Rollback()
			return entity.HelpRequest{}, err
		}
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":      requestID,
			"help_request_id": id,
			"error":           err.Error(),
		}).Error("Failed to commit help request resolution")
		return entity.HelpRequest{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":      requestID,
		"help_request_id": id,
		"status":          hr.Status,
	}).Info("Help request handled")

	if s.events != nil {
		eventType := frontdesk.EventHelpRequestResolved
		if status == entity.HelpRequestStatusUnresolved {
			eventType = frontdesk.EventHelpRequestUnresolved
		}
		s.events.Publish(ctx, eventType, hr)
	}

	s.followUp(ctx, hr)

	return hr, nil
}

// followUp texts the supervisor's answer to the customer.
func (s *helpRequestService) followUp(ctx context.Context, hr entity.HelpRequest) {
	if s.whatsapp == nil || !s.whatsapp.IsConnected() {
		return
	}

	if err := s.whatsapp.SendMessage(ctx, hr.CustomerPhone, FollowUpMessage(s.cfg.CompanyName, hr)); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":      contextPkg.GetRequestID(ctx),
			"help_request_id": hr.ID,
			"error":           err.Error(),
		}).Warn("Failed to send customer follow-up")
	}
}

func FollowUpMessage(companyName string, hr entity.HelpRequest) string {
	greeting := hr.CustomerName
	if greeting == "" {
		greeting = "there"
	}
	return fmt.Sprintf("Hi %s, this is %s following up on your question: \"%s\"\n\n%s", greeting, companyName, hr.Question, hr.SupervisorResponse)
}

func (s *helpRequestService) GetByID(ctx context.Context, id string) (entity.HelpRequest, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.HelpRequest{}, err
	}

	return repo.HelpRequests.GetHelpRequestByID(ctx, id)
}

func (s *helpRequestService) ListByStatus(ctx context.Context, status entity.HelpRequestStatus) ([]entity.HelpRequest, error) {
	return s.ListAll(ctx, string(status), s.cfg.HelpRequestListLimit)
}

func (s *helpRequestService) ListPending(ctx context.Context) ([]entity.HelpRequest, error) {
	return s.ListByStatus(ctx, entity.HelpRequestStatusPending)
}

// ListAll lists newest first. An empty status lists every status.
func (s *helpRequestService) ListAll(ctx context.Context, status string, limit int) ([]entity.HelpRequest, error) {
	requestID := contextPkg.GetRequestID(ctx)

	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !entity.IsValidHelpRequestStatus(status) {
		return nil, frontdesk.ErrInvalidStatus
	}
	if limit <= 0 {
		limit = s.cfg.HelpRequestListLimit
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return nil, err
	}

	requests, err := repo.HelpRequests.ListHelpRequests(ctx, entity.HelpRequestStatus(status), limit)
	if err != nil {
		return nil, err
	}

	return requests, nil
}

func (s *helpRequestService) Statistics(ctx context.Context) (entity.HelpRequestStats, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.HelpRequestStats{}, err
	}

	counts, err := repo.HelpRequests.CountHelpRequestsByStatus(ctx)
	if err != nil {
		return entity.HelpRequestStats{}, err
	}

	return NewHelpRequestStats(counts), nil
}

// NewHelpRequestStats derives totals and the resolution rate, formatted with
// one decimal ("0.0" when there are no requests).
func NewHelpRequestStats(counts map[entity.HelpRequestStatus]int) entity.HelpRequestStats {
	stats := entity.HelpRequestStats{
		Pending:    counts[entity.HelpRequestStatusPending],
		Resolved:   counts[entity.HelpRequestStatusResolved],
		Unresolved: counts[entity.HelpRequestStatusUnresolved],
	}
	stats.Total = stats.Pending + stats.Resolved + stats.Unresolved

	rate := 0.0
	if stats.Total > 0 {
		rate = float64(stats.Resolved) / float64(stats.Total) * 100
	}
	stats.ResolutionRate = fmt.Sprintf("%.1f", rate)

	return stats
}
