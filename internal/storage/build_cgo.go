//go:build cgo_sqlite

package storage

// CGO build using the C SQLite amalgamation.
//
//   CGO_ENABLED=1 go build -tags cgo_sqlite ./...
//
// A dedicated driver name is registered so the connect hook that installs
// the vector distance and case folding functions applies to every connection.

import (
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3_smartsearch"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc(sqlFuncDistance, cosineDistanceBlobs, true); err != nil {
				return err
			}
			return conn.RegisterFunc(sqlFuncFold, casefold, true)
		},
	})
}
