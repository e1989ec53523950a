package sql

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

// InsertColumns are the columns written when a request row is created, the
// remaining columns are owned by the delivery process.
var InsertColumns = []string{"key_id", "req_id", "mail_from", "mail_to", "mail_reply_to", "mail_subject", "mail_text", "mail_html"}

func insertRequest(b sq.StatementBuilderType, table string, values []interface{}) sq.InsertBuilder {
	return b.Insert(table).Columns(InsertColumns...).Values(values...)
}

func selectRequest(b sq.StatementBuilderType, table string, columns []string, id uint) (string, []interface{}, error) {
	return b.Select(columns...).From(table).Where(sq.Eq{"id": id}).ToSql()
}

func updateOutcome(b sq.StatementBuilderType, table string, id uint, fulfilled *time.Time, lastError *string) (string, []interface{}, error) {
	u := b.Update(table)

	// resolved rows are final, a late outcome must never overwrite them
	if fulfilled == nil {
		return u.Set("lasterror", nullable(lastError)).
			Where(sq.Eq{"id": id}).
			Where(sq.Eq{"fulfilled": nil}).
			ToSql()
	}

	return u.Set("fulfilled", *fulfilled).
		Set("lasterror", nullable(lastError)).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"fulfilled": nil}).
		ToSql()
}

func selectPendingIds(b sq.StatementBuilderType, table string) (string, []interface{}, error) {
	return b.Select("id").From(table).Where(sq.Eq{"fulfilled": nil}).OrderBy("id ASC").ToSql()
}

func selectStatuses(b sq.StatementBuilderType, table string, keyId uint, reqId string) (string, []interface{}, error) {
	return b.Select("id", "fulfilled", "lasterror").
		From(table).
		Where(sq.Eq{"key_id": keyId}).
		Where(sq.Eq{"req_id": reqId}).
		OrderBy("id ASC").
		ToSql()
}

func deleteFulfilled(b sq.StatementBuilderType, table string, olderThan time.Time) (string, []interface{}, error) {
	return b.Delete(table).Where(sq.LtOrEq{"fulfilled": olderThan}).ToSql()
}

func selectAuthKey(b sq.StatementBuilderType, table string, code string) (string, []interface{}, error) {
	return b.Select("id", "code", "ban", "label").From(table).Where(sq.Eq{"code": code}).Limit(1).ToSql()
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
