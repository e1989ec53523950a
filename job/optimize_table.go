package job

import (
	"context"
	"database/sql"
	"net/http"

	"inviqa/mail-relay/config"
	"inviqa/mail-relay/log"
	s "inviqa/mail-relay/request/data/sql"

	"github.com/newrelic/go-agent/v3/newrelic"
)

const requestsTable = "requests"

type execer interface {
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// optimizeTable reclaims the space left behind by the retention sweep.
type optimizeTable struct {
	db        execer
	statement string
	product   newrelic.DatastoreProduct
	SidecarQuitter
}

// RunOptimize optimizes the requests table once and returns the process exit
// code.
func RunOptimize(ctx context.Context, db execer, cfg *config.Config) int {
	j := newOptimizeTableWithDefaultClient(db, cfg.DBDriver)
	if j == nil {
		log.Logger.WithField("driver", cfg.DBDriver).Error("unable to determine the database driver")
		return 1
	}

	if cfg.SidecarProxyUrl != "" {
		j.EnableSideCarProxyQuit(cfg.SidecarProxyUrl)
	}

	if err := j.Execute(ctx); err != nil {
		return 1
	}

	return 0
}

func newOptimizeTableWithDefaultClient(db execer, dr config.DbDriver) *optimizeTable {
	return newOptimizeTable(db, dr, http.DefaultClient)
}

func newOptimizeTable(db execer, dr config.DbDriver, cl httpPoster) *optimizeTable {
	sc := SidecarQuitter{Client: cl}
	switch true {
	case dr.MySQL():
		return &optimizeTable{
			db:             db,
			statement:      (&s.MysqlQueryProvider{Table: requestsTable}).OptimizeTableSql(),
			product:        newrelic.DatastoreMySQL,
			SidecarQuitter: sc,
		}
	case dr.Postgres():
		return &optimizeTable{
			db:             db,
			statement:      (&s.PostgresQueryProvider{Table: requestsTable}).OptimizeTableSql(),
			product:        newrelic.DatastorePostgres,
			SidecarQuitter: sc,
		}
	}
	return nil
}

func (o *optimizeTable) Execute(ctx context.Context) error {
	defer o.newRelicSegment(ctx).End()

	_, err := o.db.Exec(ctx, o.statement)

	if err == nil {
		log.Logger.WithField("statement", o.statement).Info("optimized the requests table successfully")
	} else {
		log.Logger.WithError(err).Error("an error occurred optimizing the requests table")
	}

	if o.QuitSidecar {
		if qErr := o.Quit(); qErr != nil {
			return qErr
		}
	}

	return err
}

func (o *optimizeTable) newRelicSegment(ctx context.Context) *newrelic.DatastoreSegment {
	return &newrelic.DatastoreSegment{
		Product:    o.product,
		Collection: requestsTable,
		Operation:  "OPTIMIZE",
		StartTime:  newrelic.FromContext(ctx).StartSegmentNow(),
	}
}
