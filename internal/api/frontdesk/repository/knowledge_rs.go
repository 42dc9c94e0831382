package frontdeskRepository

import (
	"context"
	"database/sql"
	"errors"
	"frontdesk/internal/api/frontdesk"
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type KnowledgeEntryDB struct {
	ID              sql.NullString `db:"id"`
	Question        sql.NullString `db:"question"`
	Answer          sql.NullString `db:"answer"`
	Category        sql.NullString `db:"category"`
	Keywords        pq.StringArray `db:"keywords"`
	Provenance      sql.NullString `db:"provenance"`
	SourceRequestID sql.NullString `db:"source_request_id"`
	UsageCount      sql.NullInt64  `db:"usage_count"`
	LastUsedAt      sql.NullTime   `db:"last_used_at"`
	IsActive        sql.NullBool   `db:"is_active"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *knowledgeRepository) CreateEntry(c context.Context, entry entity.KnowledgeEntry) error {
	requestID := contextPkg.GetRequestID(c)

	keywords := entry.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	argsKV := map[string]interface{}{
		"id":                entry.ID,
		"question":          entry.Question,
		"answer":            entry.Answer,
		"category":          nullString(entry.Category),
		"keywords":          pq.Array(keywords),
		"provenance":        string(entry.Provenance),
		"source_request_id": nullString(entry.SourceRequestID),
		"created_at":        entry.CreatedAt,
		"updated_at":        entry.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateKnowledgeEntry, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateEntry")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating knowledge entry")
		return err
	}

	return nil
}

func (r *knowledgeRepository) GetEntryByID(c context.Context, id string) (entity.KnowledgeEntry, error) {
	requestID := contextPkg.GetRequestID(c)
	var entry KnowledgeEntryDB

	query, args, err := sqlx.Named(queryGetKnowledgeEntryByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetEntryByID named query preparation err")
		return entity.KnowledgeEntry{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         id,
			}).Warn("GetEntryByID no rows found")
			return entity.KnowledgeEntry{}, frontdesk.ErrKnowledgeNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetEntryByID execution err")
		return entity.KnowledgeEntry{}, err
	}

	return r.makeKnowledgeEntry(entry), nil
}

// SearchEntries ranks active entries against an OR query of the given terms.
// Terms must already be normalized keywords.
func (r *knowledgeRepository) SearchEntries(c context.Context, terms []string, limit int) ([]entity.KnowledgeEntry, error) {
	if len(terms) == 0 {
		return []entity.KnowledgeEntry{}, nil
	}

	argsKV := map[string]interface{}{
		"query": strings.Join(terms, " | "),
		"limit": limit,
	}

	return r.selectEntries(c, "SearchEntries", querySearchKnowledgeEntries, argsKV)
}

func (r *knowledgeRepository) FindEntriesByKeywords(c context.Context, keywords []string, limit int) ([]entity.KnowledgeEntry, error) {
	if len(keywords) == 0 {
		return []entity.KnowledgeEntry{}, nil
	}

	argsKV := map[string]interface{}{
		"keywords": pq.Array(keywords),
		"limit":    limit,
	}

	return r.selectEntries(c, "FindEntriesByKeywords", queryFindKnowledgeEntriesByKeywords, argsKV)
}

func (r *knowledgeRepository) ListActiveEntries(c context.Context, limit int) ([]entity.KnowledgeEntry, error) {
	return r.selectEntries(c, "ListActiveEntries", queryListActiveKnowledgeEntries, map[string]interface{}{
		"limit": limit,
	})
}

// RecordEntryUsage increments the usage counter in a single statement so
// concurrent matches never lose an update.
func (r *knowledgeRepository) RecordEntryUsage(c context.Context, id string, usedAt time.Time) (entity.KnowledgeEntry, error) {
	return r.updateEntry(c, "RecordEntryUsage", queryRecordKnowledgeEntryUsage, map[string]interface{}{
		"id":      id,
		"used_at": usedAt,
	})
}

func (r *knowledgeRepository) SetEntryActive(c context.Context, id string, active bool, updatedAt time.Time) (entity.KnowledgeEntry, error) {
	return r.updateEntry(c, "SetEntryActive", querySetKnowledgeEntryActive, map[string]interface{}{
		"id":         id,
		"is_active":  active,
		"updated_at": updatedAt,
	})
}

func (r *knowledgeRepository) CountEntries(c context.Context) (int, error) {
	requestID := contextPkg.GetRequestID(c)

	var count int
	if err := r.q.QueryRowxContext(c, queryCountKnowledgeEntries).Scan(&count); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountEntries execution err")
		return 0, err
	}

	return count, nil
}

func (r *knowledgeRepository) selectEntries(c context.Context, op string, namedQuery string, argsKV map[string]interface{}) ([]entity.KnowledgeEntry, error) {
	requestID := contextPkg.GetRequestID(c)
	var entries []KnowledgeEntryDB

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &entries, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " execution err")
		return nil, err
	}

	result := make([]entity.KnowledgeEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, r.makeKnowledgeEntry(entry))
	}

	return result, nil
}

func (r *knowledgeRepository) updateEntry(c context.Context, op string, namedQuery string, argsKV map[string]interface{}) (entity.KnowledgeEntry, error) {
	requestID := contextPkg.GetRequestID(c)
	var entry KnowledgeEntryDB

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " named query preparation err")
		return entity.KnowledgeEntry{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         argsKV["id"],
			}).Warn(op + " no rows affected")
			return entity.KnowledgeEntry{}, frontdesk.ErrKnowledgeNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " execution err")
		return entity.KnowledgeEntry{}, err
	}

	return r.makeKnowledgeEntry(entry), nil
}

func (r *knowledgeRepository) makeKnowledgeEntry(entry KnowledgeEntryDB) entity.KnowledgeEntry {
	res := entity.KnowledgeEntry{
		ID:              entry.ID.String,
		Question:        entry.Question.String,
		Answer:          entry.Answer.String,
		Category:        entry.Category.String,
		Keywords:        []string(entry.Keywords),
		Provenance:      entity.Provenance(entry.Provenance.String),
		SourceRequestID: entry.SourceRequestID.String,
		UsageCount:      entry.UsageCount.Int64,
		IsActive:        entry.IsActive.Bool,
		CreatedAt:       entry.CreatedAt,
		UpdatedAt:       entry.UpdatedAt,
	}
	if res.Keywords == nil {
		res.Keywords = []string{}
	}
	if entry.LastUsedAt.Valid {
		lastUsedAt := entry.LastUsedAt.Time
		res.LastUsedAt = &lastUsedAt
	}
	return res
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
