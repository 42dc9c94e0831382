package frontdeskRepository

import (
	"frontdesk/internal/entity"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		var err error
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Knowledge:    &knowledgeRepository{q: sqlExecutor, log: r.log},
		HelpRequests: &helpRequestRepository{q: sqlExecutor, log: r.log},
		Commit:       commitFunc,
		Rollback:     rollbackFunc,
	}, nil
}

type Client struct {
	Knowledge interface {
		CreateEntry(ctx context.Context, entry entity.KnowledgeEntry) error
		GetEntryByID(ctx context.Context, id string) (entity.KnowledgeEntry, error)
		SearchEntries(ctx context.Context, terms []string, limit int) ([]entity.KnowledgeEntry, error)
		FindEntriesByKeywords(ctx context.Context, keywords []string, limit int) ([]entity.KnowledgeEntry, error)
		RecordEntryUsage(ctx context.Context, id string, usedAt time.Time) (entity.KnowledgeEntry, error)
		ListActiveEntries(ctx context.Context, limit int) ([]entity.KnowledgeEntry, error)
		SetEntryActive(ctx context.Context, id string, active bool, updatedAt time.Time) (entity.KnowledgeEntry, error)
		CountEntries(ctx context.Context) (int, error)
	}

	HelpRequests interface {
		CreateHelpRequest(ctx context.Context, hr entity.HelpRequest) error
		GetHelpRequestByID(ctx context.Context, id string) (entity.HelpRequest, error)
		ListHelpRequests(ctx context.Context, status entity.HelpRequestStatus, limit int) ([]entity.HelpRequest, error)
		RespondToHelpRequest(ctx context.Context, res HelpRequestResolution) (entity.HelpRequest, error)
		CountHelpRequestsByStatus(ctx context.Context) (map[entity.HelpRequestStatus]int, error)
	}

	Commit   func() error
	Rollback func() error
}

// HelpRequestResolution moves a PENDING help request to a terminal status.
type HelpRequestResolution struct {
	ID                 string
	Status             entity.HelpRequestStatus
	SupervisorResponse string
	SupervisorName     string
	RespondedAt        time.Time
}

type knowledgeRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type helpRequestRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
