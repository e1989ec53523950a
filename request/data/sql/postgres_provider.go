package sql

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

type PostgresQueryProvider struct {
	Table    string
	KeyTable string
	Columns  []string
}

func (p PostgresQueryProvider) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// InsertSql returns the new id through RETURNING, postgres does not support
// LastInsertId.
func (p PostgresQueryProvider) InsertSql(values []interface{}) (string, []interface{}, error) {
	return insertRequest(p.builder(), p.Table, values).Suffix("RETURNING id").ToSql()
}

func (p PostgresQueryProvider) InsertReturnsId() bool {
	return true
}

func (p PostgresQueryProvider) GetSql(id uint) (string, []interface{}, error) {
	return selectRequest(p.builder(), p.Table, p.Columns, id)
}

func (p PostgresQueryProvider) OutcomeUpdateSql(id uint, fulfilled *time.Time, lastError *string) (string, []interface{}, error) {
	return updateOutcome(p.builder(), p.Table, id, fulfilled, lastError)
}

func (p PostgresQueryProvider) PendingIdsSql() (string, []interface{}, error) {
	return selectPendingIds(p.builder(), p.Table)
}

func (p PostgresQueryProvider) StatusListSql(keyId uint, reqId string) (string, []interface{}, error) {
	return selectStatuses(p.builder(), p.Table, keyId, reqId)
}

func (p PostgresQueryProvider) DeleteFulfilledSql(olderThan time.Time) (string, []interface{}, error) {
	return deleteFulfilled(p.builder(), p.Table, olderThan)
}

func (p PostgresQueryProvider) AuthKeySql(code string) (string, []interface{}, error) {
	return selectAuthKey(p.builder(), p.KeyTable, code)
}

func (p PostgresQueryProvider) GetQueueSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE fulfilled IS NULL", p.Table)
}

func (p PostgresQueryProvider) GetTotalSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", p.Table)
}

func (p PostgresQueryProvider) OptimizeTableSql() string {
	return fmt.Sprintf("VACUUM %s;", p.Table)
}
