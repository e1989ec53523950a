package sql

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

type MysqlQueryProvider struct {
	Table    string
	KeyTable string
	Columns  []string
}

func (m MysqlQueryProvider) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (m MysqlQueryProvider) InsertSql(values []interface{}) (string, []interface{}, error) {
	return insertRequest(m.builder(), m.Table, values).ToSql()
}

func (m MysqlQueryProvider) InsertReturnsId() bool {
	return false
}

func (m MysqlQueryProvider) GetSql(id uint) (string, []interface{}, error) {
	return selectRequest(m.builder(), m.Table, m.Columns, id)
}

func (m MysqlQueryProvider) OutcomeUpdateSql(id uint, fulfilled *time.Time, lastError *string) (string, []interface{}, error) {
	return updateOutcome(m.builder(), m.Table, id, fulfilled, lastError)
}

func (m MysqlQueryProvider) PendingIdsSql() (string, []interface{}, error) {
	return selectPendingIds(m.builder(), m.Table)
}

func (m MysqlQueryProvider) StatusListSql(keyId uint, reqId string) (string, []interface{}, error) {
	return selectStatuses(m.builder(), m.Table, keyId, reqId)
}

func (m MysqlQueryProvider) DeleteFulfilledSql(olderThan time.Time) (string, []interface{}, error) {
	return deleteFulfilled(m.builder(), m.Table, olderThan)
}

func (m MysqlQueryProvider) AuthKeySql(code string) (string, []interface{}, error) {
	return selectAuthKey(m.builder(), m.KeyTable, code)
}

func (m MysqlQueryProvider) GetQueueSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM `%s` WHERE fulfilled IS NULL", m.Table)
}

func (m MysqlQueryProvider) GetTotalSizeSql() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM `%s`", m.Table)
}

func (m MysqlQueryProvider) OptimizeTableSql() string {
	return fmt.Sprintf("OPTIMIZE TABLE %s;", m.Table)
}
