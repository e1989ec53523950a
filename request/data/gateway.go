package data

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"regexp"
	"sync/atomic"
	"time"

	"inviqa/mail-relay/log"

	"github.com/pkg/errors"
)

const (
	queryTimeout  = time.Second * 10
	probeInterval = time.Minute
)

// ErrUnavailable is returned instead of the driver error whenever the database
// could not be reached in time. Callers are expected to defer their work.
var ErrUnavailable = errors.New("database is unavailable")

var timeoutSignature = regexp.MustCompile(`(?i)ETIMEDOUT|ECONNREFUSED|ECONNRESET|timed out|timeout|connection refused|connection reset|bad connection`)

// Gateway wraps every statement sent to the database so transient connectivity
// failures surface as ErrUnavailable rather than as driver specific errors.
type Gateway struct {
	db        *sql.DB
	timeout   time.Duration
	connected atomic.Bool
}

func NewGateway(db *sql.DB) *Gateway {
	g := &Gateway{
		db:      db,
		timeout: queryTimeout,
	}
	g.connected.Store(true)

	return g
}

// IsConnected reports the outcome of the most recent statement. It is only
// informational, every call still attempts the database.
func (g *Gateway) IsConnected() bool {
	return g.connected.Load()
}

func (g *Gateway) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.db.ExecContext(ctx, query, args...)

	return res, g.classify(err)
}

// Query runs the statement and hands every row to each. Errors from iterating
// or scanning are classified the same way as errors from the query itself.
func (g *Gateway) Query(ctx context.Context, query string, args []interface{}, each func(rows *sql.Rows) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return g.classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := each(rows); err != nil {
			return g.classify(err)
		}
	}

	return g.classify(rows.Err())
}

// QueryRow scans a single row into dest. sql.ErrNoRows is returned unchanged
// and counts as a successful round trip.
func (g *Gateway) QueryRow(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	return g.classify(g.db.QueryRowContext(ctx, query, args...).Scan(dest...))
}

func (g *Gateway) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	return g.classify(g.db.PingContext(ctx))
}

// Probe issues a no-op statement to refresh the connectivity flag.
func (g *Gateway) Probe(ctx context.Context) error {
	var one int
	return g.QueryRow(ctx, "SELECT 1", nil, &one)
}

// StartProbe keeps the connectivity flag fresh while there is no traffic.
func (g *Gateway) StartProbe(ctx context.Context) {
	go g.probe(ctx, probeInterval)
}

func (g *Gateway) probe(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.Probe(ctx); err != nil && !errors.Is(err, ErrUnavailable) {
				log.Logger.WithError(err).Error("unexpected error probing the database")
			}
		}
	}
}

func (g *Gateway) classify(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		g.setConnected(true)
		return err
	}

	if IsTimeout(err) {
		g.setConnected(false)
		return errors.Wrap(ErrUnavailable, err.Error())
	}

	return err
}

func (g *Gateway) setConnected(connected bool) {
	if was := g.connected.Swap(connected); was != connected {
		log.Logger.WithField("connected", connected).Warn("database connectivity changed")
	}
}

// IsTimeout reports whether err belongs to the transient connectivity class.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return timeoutSignature.MatchString(err.Error())
}
