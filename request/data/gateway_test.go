package data

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNewGateway(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	if g := NewGateway(db); !g.IsConnected() {
		t.Error("expected a new gateway to start out connected")
	}
}

func TestGateway_ExecWithTimeoutReturnsUnavailable(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	g := NewGateway(db)
	mock.ExpectExec("UPDATE requests").WillReturnError(errors.New("dial tcp 10.0.0.1:5432: connect: ETIMEDOUT"))

	_, err := g.Exec(context.Background(), "UPDATE requests SET fulfilled = NOW()")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	if g.IsConnected() {
		t.Error("expected the gateway to be flagged as disconnected")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("some SQL expectations were not met: %s", err)
	}
}

func TestGateway_SuccessfulStatementRestoresConnectivity(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	g := NewGateway(db)
	mock.ExpectExec("DELETE FROM requests").WillReturnError(errors.New("connection refused"))
	mock.ExpectExec("DELETE FROM requests").WillReturnResult(sqlmock.NewResult(0, 3))

	_, _ = g.Exec(context.Background(), "DELETE FROM requests")
	if g.IsConnected() {
		t.Fatal("expected the gateway to be flagged as disconnected")
	}

	res, err := g.Exec(context.Background(), "DELETE FROM requests")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if n, _ := res.RowsAffected(); n != 3 {
		t.Errorf("expected 3 affected rows, got %d", n)
	}

	if !g.IsConnected() {
		t.Error("expected the gateway to be flagged as connected again")
	}
}

func TestGateway_OtherErrorsPropagateUnchanged(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	g := NewGateway(db)
	syntaxErr := errors.New(`pq: syntax error at or near "SELEC"`)
	mock.ExpectExec("SELEC").WillReturnError(syntaxErr)

	_, err := g.Exec(context.Background(), "SELEC 1")
	if err != syntaxErr {
		t.Fatalf("expected the original error, got %v", err)
	}

	if errors.Is(err, ErrUnavailable) {
		t.Error("a syntax error must not be classified as unavailable")
	}

	if !g.IsConnected() {
		t.Error("a non-connectivity error must not change the connectivity flag")
	}
}

func TestGateway_QueryRowNoRowsCountsAsConnected(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	g := NewGateway(db)
	g.connected.Store(false)
	mock.ExpectQuery("SELECT id FROM requests").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	var id uint
	err := g.QueryRow(context.Background(), "SELECT id FROM requests WHERE id = $1", []interface{}{1}, &id)
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}

	if !g.IsConnected() {
		t.Error("expected the gateway to be flagged as connected")
	}
}

func TestGateway_Query(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	g := NewGateway(db)
	mock.ExpectQuery("SELECT id FROM requests").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4).AddRow(9))

	var ids []uint
	err := g.Query(context.Background(), "SELECT id FROM requests", nil, func(rows *sql.Rows) error {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if len(ids) != 2 || ids[0] != 4 || ids[1] != 9 {
		t.Errorf("expected ids [4 9], got %v", ids)
	}
}

func TestGateway_QueryWithRowErrorIsClassified(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	g := NewGateway(db)
	mock.ExpectQuery("SELECT id FROM requests").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4).RowError(0, errors.New("read: connection reset by peer")))

	err := g.Query(context.Background(), "SELECT id FROM requests", nil, func(rows *sql.Rows) error {
		return nil
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGateway_Probe(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	g := NewGateway(db)
	g.connected.Store(false)
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	if err := g.Probe(context.Background()); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if !g.IsConnected() {
		t.Error("expected the probe to restore the connectivity flag")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("some SQL expectations were not met: %s", err)
	}
}

func TestGateway_ProbeLoopStopsWithContext(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	g := NewGateway(db)
	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("i/o timeout"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.probe(ctx, time.Millisecond*10)
		close(done)
	}()

	time.Sleep(time.Millisecond * 25)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected the probe loop to return after the context was cancelled")
	}

	if g.IsConnected() {
		t.Error("expected the failed probe to flag the gateway as disconnected")
	}
}

func TestGateway_Ping(t *testing.T) {
	db, mock, _ := sqlmock.New(sqlmock.MonitorPingsOption(true))
	defer db.Close()

	g := NewGateway(db)
	mock.ExpectPing().WillReturnError(errors.New("dial tcp: connection refused"))

	if err := g.Ping(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "wrapped deadline exceeded", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: true},
		{name: "bad connection", err: driver.ErrBadConn, want: true},
		{name: "ETIMEDOUT text", err: errors.New("connect ETIMEDOUT 10.0.0.1:5432"), want: true},
		{name: "i/o timeout text", err: errors.New("read tcp: i/o timeout"), want: true},
		{name: "refused", err: errors.New("dial tcp [::1]:5432: connect: connection refused"), want: true},
		{name: "context cancelled", err: context.Canceled, want: false},
		{name: "constraint violation", err: errors.New("duplicate key value violates unique constraint"), want: false},
		{name: "no rows", err: sql.ErrNoRows, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTimeout(tt.err); got != tt.want {
				t.Errorf("IsTimeout(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
