//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"inviqa/mail-relay/request"
)

func rebind(q string) string {
	if cfg.DBDriver.MySQL() {
		return q
	}

	for i := 1; strings.Contains(q, "?"); i++ {
		q = strings.Replace(q, "?", fmt.Sprintf("$%d", i), 1)
	}

	return q
}

func purgeTables() {
	for _, t := range []string{"requests", "auth_keys"} {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s;", t)); err != nil {
			panic(fmt.Sprintf("an error occurred cleaning the %s table for tests: %s", t, err))
		}
	}
}

func insertAuthKey(code, ban string) uint {
	var id int64
	b := sql.NullString{String: ban, Valid: ban != ""}

	if cfg.DBDriver.MySQL() {
		res, err := db.Exec("INSERT INTO auth_keys (code, ban) VALUES (?, ?);", code, b)
		if err != nil {
			panic(fmt.Sprintf("failed to insert auth key in MySQL: %s", err))
		}
		if id, err = res.LastInsertId(); err != nil {
			panic(fmt.Sprintf("failed to determine last insert ID for the auth key: %s", err))
		}
	} else {
		err := db.QueryRow("INSERT INTO auth_keys (code, ban) VALUES ($1, $2) RETURNING id;", code, b).Scan(&id)
		if err != nil {
			panic(fmt.Sprintf("failed to insert auth key in Postgres: %s", err))
		}
	}

	return uint(id)
}

func insertRequest(r *request.Request) {
	if err := repo.Insert(context.Background(), r); err != nil {
		panic(fmt.Sprintf("failed to insert request: %s", err))
	}

	if !r.Fulfilled.Valid {
		return
	}

	q := rebind("UPDATE requests SET fulfilled = ?, lasterror = ? WHERE id = ?;")
	if _, err := db.Exec(q, r.Fulfilled.Time, r.LastError, r.Id); err != nil {
		panic(fmt.Sprintf("failed to mark request %d as fulfilled: %s", r.Id, err))
	}
}

func requestExists(id uint) bool {
	var count int
	if err := db.QueryRow(rebind("SELECT COUNT(*) FROM requests WHERE id = ?;"), id).Scan(&count); err != nil {
		panic(err)
	}

	return count > 0
}
