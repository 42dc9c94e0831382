package frontdeskRepository

import (
	"context"
	"database/sql"
	"errors"
	"frontdesk/internal/api/frontdesk"
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type HelpRequestDB struct {
	ID                 sql.NullString `db:"id"`
	CustomerPhone      sql.NullString `db:"customer_phone"`
	CustomerName       sql.NullString `db:"customer_name"`
	Question           sql.NullString `db:"question"`
	Context            sql.NullString `db:"context"`
	Status             sql.NullString `db:"status"`
	SupervisorResponse sql.NullString `db:"supervisor_response"`
	SupervisorName     sql.NullString `db:"supervisor_name"`
	RespondedAt        sql.NullTime   `db:"responded_at"`
	SessionKey         sql.NullString `db:"session_key"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type statusCountDB struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

func (r *helpRequestRepository) CreateHelpRequest(c context.Context, hr entity.HelpRequest) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":             hr.ID,
		"customer_phone": hr.CustomerPhone,
		"customer_name":  nullString(hr.CustomerName),
		"question":       hr.Question,
		"context":        nullString(hr.Context),
		"status":         string(hr.Status),
		"session_key":    nullString(hr.SessionKey),
		"created_at":     hr.CreatedAt,
		"updated_at":     hr.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateHelpRequest, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateHelpRequest")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating help request")
		return err
	}

	return nil
}

func (r *helpRequestRepository) GetHelpRequestByID(c context.Context, id string) (entity.HelpRequest, error) {
	requestID := contextPkg.GetRequestID(c)
	var hr HelpRequestDB

	query, args, err := sqlx.Named(queryGetHelpRequestByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetHelpRequestByID named query preparation err")
		return entity.HelpRequest{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&hr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id":      requestID,
				"help_request_id": id,
			}).Warn("GetHelpRequestByID no rows found")
			return entity.HelpRequest{}, frontdesk.ErrHelpRequestNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetHelpRequestByID execution err")
		return entity.HelpRequest{}, err
	}

	return r.makeHelpRequest(hr), nil
}

// ListHelpRequests returns the newest requests first. An empty status lists every status.
func (r *helpRequestRepository) ListHelpRequests(c context.Context, status entity.HelpRequestStatus, limit int) ([]entity.HelpRequest, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []HelpRequestDB

	namedQuery := queryListHelpRequests
	argsKV := map[string]interface{}{
		"limit": limit,
	}
	if status != "" {
		namedQuery = queryListHelpRequestsByStatus
		argsKV["status"] = string(status)
	}

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListHelpRequests named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListHelpRequests execution err")
		return nil, err
	}

	result := make([]entity.HelpRequest, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.makeHelpRequest(row))
	}

	return result, nil
}

// RespondToHelpRequest applies the transition only while the request is still
// PENDING. When no row changes, the request is looked up to tell a missing id
// from an already handled one.
func (r *helpRequestRepository) RespondToHelpRequest(c context.Context, res HelpRequestResolution) (entity.HelpRequest, error) {
	requestID := contextPkg.GetRequestID(c)
	var hr HelpRequestDB

	argsKV := map[string]interface{}{
		"id":                  res.ID,
		"status":              string(res.Status),
		"supervisor_response": res.SupervisorResponse,
		"supervisor_name":     res.SupervisorName,
		"responded_at":        res.RespondedAt,
	}

	query, args, err := sqlx.Named(queryRespondToHelpRequest, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("RespondToHelpRequest named query preparation err")
		return entity.HelpRequest{}, err
	}
	query = r.q.Rebind(query)

	err = r.q.QueryRowxContext(c, query, args...).StructScan(&hr)
	if err == nil {
		return r.makeHelpRequest(hr), nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("RespondToHelpRequest execution err")
		return entity.HelpRequest{}, err
	}

	if _, err := r.GetHelpRequestByID(c, res.ID); err != nil {
		return entity.HelpRequest{}, err
	}

	r.log.WithFields(logrus.Fields{
		"request_id":      requestID,
		"help_request_id": res.ID,
	}).Warn("RespondToHelpRequest request is no longer pending")

	return entity.HelpRequest{}, frontdesk.ErrInvalidTransition
}

func (r *helpRequestRepository) CountHelpRequestsByStatus(c context.Context) (map[entity.HelpRequestStatus]int, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []statusCountDB

	if err := r.q.SelectContext(c, &rows, queryCountHelpRequestsByStatus); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountHelpRequestsByStatus execution err")
		return nil, err
	}

	counts := make(map[entity.HelpRequestStatus]int, len(rows))
	for _, row := range rows {
		counts[entity.HelpRequestStatus(row.Status)] = row.Count
	}

	return counts, nil
}

func (r *helpRequestRepository) makeHelpRequest(hr HelpRequestDB) entity.HelpRequest {
	res := entity.HelpRequest{
		ID:                 hr.ID.String,
		CustomerPhone:      hr.CustomerPhone.String,
		CustomerName:       hr.CustomerName.String,
		Question:           hr.Question.String,
		Context:            hr.Context.String,
		Status:             entity.HelpRequestStatus(hr.Status.String),
		SupervisorResponse: hr.SupervisorResponse.String,
		SupervisorName:     hr.SupervisorName.String,
		SessionKey:         hr.SessionKey.String,
		CreatedAt:          hr.CreatedAt,
		UpdatedAt:          hr.UpdatedAt,
	}
	if hr.RespondedAt.Valid {
		respondedAt := hr.RespondedAt.Time
		res.RespondedAt = &respondedAt
	}
	return res
}
