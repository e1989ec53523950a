package request

import (
	"context"
	"database/sql"
	"time"

	"inviqa/mail-relay/config"
	"inviqa/mail-relay/log"
	s "inviqa/mail-relay/request/data/sql"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	requestsTable = "requests"
	authKeysTable = "auth_keys"
)

var columns = []string{"id", "key_id", "req_id", "mail_from", "mail_to", "mail_reply_to", "mail_subject", "mail_text", "mail_html", "fulfilled", "lasterror"}

type queryProvider interface {
	InsertSql(values []interface{}) (string, []interface{}, error)
	InsertReturnsId() bool
	GetSql(id uint) (string, []interface{}, error)
	OutcomeUpdateSql(id uint, fulfilled *time.Time, lastError *string) (string, []interface{}, error)
	PendingIdsSql() (string, []interface{}, error)
	StatusListSql(keyId uint, reqId string) (string, []interface{}, error)
	DeleteFulfilledSql(olderThan time.Time) (string, []interface{}, error)
	AuthKeySql(code string) (string, []interface{}, error)
	GetQueueSizeSql() string
	GetTotalSizeSql() string
}

// gateway is the subset of data.Gateway used by the repository. Every method
// returns data.ErrUnavailable when the database cannot be reached.
type gateway interface {
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(ctx context.Context, query string, args []interface{}, each func(rows *sql.Rows) error) error
	QueryRow(ctx context.Context, query string, args []interface{}, dest ...interface{}) error
}

type Repository struct {
	gw            gateway
	queryProvider queryProvider
}

func NewRepository(gw gateway, cfg *config.Config) Repository {
	return NewRepositoryWithQueryProvider(gw, newQueryProvider(cfg.DBDriver))
}

func NewRepositoryWithQueryProvider(gw gateway, qp queryProvider) Repository {
	return Repository{
		gw:            gw,
		queryProvider: qp,
	}
}

// Insert persists r and sets its store assigned Id.
func (r Repository) Insert(ctx context.Context, req *Request) error {
	q, args, err := r.queryProvider.InsertSql([]interface{}{
		req.KeyId,
		req.ReqId,
		req.MailFrom,
		req.MailTo,
		req.MailReplyTo,
		req.MailSubject,
		req.MailText,
		req.MailHtml,
	})
	if err != nil {
		return errors.Wrap(err, "request: error building insert statement")
	}

	if r.queryProvider.InsertReturnsId() {
		var id uint
		if err := r.gw.QueryRow(ctx, q, args, &id); err != nil {
			return errors.Wrap(err, "request: error inserting request")
		}
		req.Id = id
		return nil
	}

	res, err := r.gw.Exec(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "request: error inserting request")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "request: error reading the inserted request id")
	}
	req.Id = uint(id)

	return nil
}

func (r Repository) Get(ctx context.Context, id uint) (*Request, error) {
	q, args, err := r.queryProvider.GetSql(id)
	if err != nil {
		return nil, errors.Wrap(err, "request: error building select statement")
	}

	req := &Request{}
	err = r.gw.QueryRow(ctx, q, args,
		&req.Id, &req.KeyId, &req.ReqId, &req.MailFrom, &req.MailTo, &req.MailReplyTo,
		&req.MailSubject, &req.MailText, &req.MailHtml, &req.Fulfilled, &req.LastError,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "request: error loading request %d", id)
	}

	return req, nil
}

// SaveOutcome persists the result of a delivery attempt.
func (r Repository) SaveOutcome(ctx context.Context, o Outcome) error {
	var fulfilled *time.Time
	if o.Fulfilled.Valid {
		fulfilled = &o.Fulfilled.Time
	}

	var lastError *string
	if o.LastError.Valid {
		lastError = &o.LastError.String
	}

	q, args, err := r.queryProvider.OutcomeUpdateSql(o.Id, fulfilled, lastError)
	if err != nil {
		return errors.Wrap(err, "request: error building outcome update statement")
	}

	log.Logger.WithFields(logrus.Fields{"query": q, "id": o.Id}).Debug("saving delivery outcome")

	if _, err := r.gw.Exec(ctx, q, args...); err != nil {
		return errors.Wrapf(err, "request: error saving the outcome of request %d", o.Id)
	}

	return nil
}

func (r Repository) markDelivered(ctx context.Context, id uint, at time.Time) error {
	return r.SaveOutcome(ctx, DeliveredOutcome(id, at))
}

func (r Repository) markFailed(ctx context.Context, id uint, at time.Time, reason string) error {
	return r.SaveOutcome(ctx, FailedOutcome(id, at, reason))
}

func (r Repository) recordTransientError(ctx context.Context, id uint, reason string) error {
	return r.SaveOutcome(ctx, TransientOutcome(id, reason))
}

// PendingIds returns the id of every request that has not been fulfilled yet.
func (r Repository) PendingIds(ctx context.Context) ([]uint, error) {
	q, args, err := r.queryProvider.PendingIdsSql()
	if err != nil {
		return nil, errors.Wrap(err, "request: error building pending statement")
	}

	var ids []uint
	err = r.gw.Query(ctx, q, args, func(rows *sql.Rows) error {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "request: error fetching pending requests")
	}

	return ids, nil
}

// ListByReqId returns the statuses of every recipient row of a submission,
// limited to the rows owned by keyId.
func (r Repository) ListByReqId(ctx context.Context, keyId uint, reqId string) ([]*Status, error) {
	q, args, err := r.queryProvider.StatusListSql(keyId, reqId)
	if err != nil {
		return nil, errors.Wrap(err, "request: error building status statement")
	}

	statuses := []*Status{}
	err = r.gw.Query(ctx, q, args, func(rows *sql.Rows) error {
		st := &Status{}
		if err := rows.Scan(&st.Id, &st.Fulfilled, &st.LastError); err != nil {
			return err
		}
		statuses = append(statuses, st)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "request: error fetching request statuses")
	}

	return statuses, nil
}

func (r Repository) DeleteFulfilled(ctx context.Context, olderThan time.Time) (int64, error) {
	q, args, err := r.queryProvider.DeleteFulfilledSql(olderThan)
	if err != nil {
		return 0, err
	}

	res, err := r.gw.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r Repository) FindKeyByCode(ctx context.Context, code string) (*AuthKey, error) {
	q, args, err := r.queryProvider.AuthKeySql(code)
	if err != nil {
		return nil, errors.Wrap(err, "request: error building auth key statement")
	}

	k := &AuthKey{}
	err = r.gw.QueryRow(ctx, q, args, &k.Id, &k.Code, &k.Ban, &k.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "request: error loading auth key")
	}

	return k, nil
}

func (r Repository) GetQueueSize(ctx context.Context) (uint, error) {
	return r.count(ctx, r.queryProvider.GetQueueSizeSql())
}

func (r Repository) GetTotalSize(ctx context.Context) (uint, error) {
	return r.count(ctx, r.queryProvider.GetTotalSizeSql())
}

func (r Repository) count(ctx context.Context, q string) (uint, error) {
	var count uint
	if err := r.gw.QueryRow(ctx, q, nil, &count); err != nil {
		return 0, err
	}

	return count, nil
}

func newQueryProvider(d config.DbDriver) queryProvider {
	switch true {
	case d.Postgres():
		return &s.PostgresQueryProvider{
			Table:    requestsTable,
			KeyTable: authKeysTable,
			Columns:  columns,
		}
	case d.MySQL():
		return &s.MysqlQueryProvider{
			Table:    requestsTable,
			KeyTable: authKeysTable,
			Columns:  columns,
		}
	}

	return nil
}
