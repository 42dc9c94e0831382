package frontdeskService

import (
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

var initialKnowledge = []AddKnowledge{
	{
		Question: "What are your business hours?",
		Answer:   "We are open Monday through Friday, 9 AM to 6 PM EST.",
		Category: "Hours",
		Keywords: []string{"hours", "open", "time", "schedule"},
	},
	{
		Question: "Where are you located?",
		Answer:   "Our office is located at 123 Main Street, Suite 100, New York, NY 10001.",
		Category: "Location",
		Keywords: []string{"location", "address", "office", "where"},
	},
	{
		Question: "How can I contact support?",
		Answer:   "You can reach our support team at support@frontdesk.com or call us at (555) 123-4567.",
		Category: "Contact",
		Keywords: []string{"contact", "support", "email", "phone", "help"},
	},
	{
		Question: "What services do you offer?",
		Answer:   "We offer AI-powered receptionist services, call handling, appointment scheduling, and customer support automation.",
		Category: "Services",
		Keywords: []string{"services", "offer", "provide", "do"},
	},
}

// SeedInitialKnowledge inserts the starter entries when the store is empty and
// returns how many were written.
func (s *knowledgeService) SeedInitialKnowledge(ctx context.Context) (int, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.repo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return 0, err
	}

	count, err := repo.Knowledge.CountEntries(ctx)
	if err != nil {
		_ = repo.Rollback()
		return 0, err
	}
	if count > 0 {
		_ = repo.Rollback()
		return 0, nil
	}

	now := time.Now()
	for _, seed := range initialKnowledge {
		seed.Provenance = entity.ProvenanceInitial

		entry, err := newKnowledgeEntry(s.utils, seed, now)
		if err != nil {
			_ = repo.Rollback()
			return 0, err
		}

		if err := repo.Knowledge.CreateEntry(ctx, entry); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to seed knowledge entry")
			_ = repo.Rollback()
			return 0, err
		}
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit knowledge seed")
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"entries":    len(initialKnowledge),
	}).Info("Initial knowledge base seeded")

	return len(initialKnowledge), nil
}
