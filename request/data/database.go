package data

import (
	"database/sql"
	"time"

	"inviqa/mail-relay/config"
	"inviqa/mail-relay/log"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pkg/errors"
)

const (
	connectionAttempts = 30
	connectTimeout     = time.Second * 10
	maxOpenConnections = 5
	maxIdleConnections = 5
	maxIdleTime        = time.Minute * 1
)

func init() {
	setupLoggers()
}

func setupLoggers() {
	err := mysql.SetLogger(log.Logger)
	if err != nil {
		log.Logger.WithError(err).Fatalf("unable to set up JSON logger for MySQL driver")
	}
}

// NewDB opens the connection pool, waits for the database to become available
// and applies migrations unless they are disabled in config.
func NewDB(cfg *config.Config) (*sql.DB, func()) {
	log.Logger.Debug("connecting to the database")

	db, err := open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Logger.Fatalf("unable to connect to the database: %s", err)
	}

	configurePool(db)
	connectToDatabase(db)
	MigrateDatabase(db, cfg)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Logger.WithError(err).Error("error closing database during shutdown process")
		}
	}

	return db, cleanup
}

func open(driver config.DbDriver, dsn string) (*sql.DB, error) {
	switch driver {
	case config.Postgres:
		connCfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "invalid postgres DSN")
		}
		connCfg.ConnectTimeout = connectTimeout

		return stdlib.OpenDB(*connCfg), nil
	case config.MySQL:
		myCfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "invalid mysql DSN")
		}
		myCfg.Timeout = connectTimeout
		myCfg.ParseTime = true

		conn, err := mysql.NewConnector(myCfg)
		if err != nil {
			return nil, err
		}

		return sql.OpenDB(conn), nil
	}

	return nil, errors.Errorf("the DB driver configured (%s) is not supported", driver)
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(maxOpenConnections)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxIdleTime(maxIdleTime)
}

func connectToDatabase(db *sql.DB) {
	tries := connectionAttempts
	for {
		err := db.Ping()
		if err == nil {
			break
		}

		time.Sleep(time.Second * 1)
		tries--
		log.Logger.Infof("database is not available (err: %s), retrying %d more time(s)", err, tries)

		if tries == 0 {
			log.Logger.Fatalf("database did not become available within %d connection attempts", connectionAttempts)
		}
	}
}
