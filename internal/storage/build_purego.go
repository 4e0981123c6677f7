//go:build !cgo_sqlite

package storage

// Default build: pure Go SQLite, no C compiler required.
//
//   CGO_ENABLED=0 go build ./...
//
// The vector distance and case folding functions are registered once for
// every connection the driver opens.

import (
	"database/sql/driver"
	"fmt"

	"modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqlFuncDistance, 2, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		a, aok := args[0].([]byte)
		b, bok := args[1].([]byte)
		if !aok || !bok {
			return nil, nil
		}
		d, err := cosineDistanceBlobs(a, b)
		if err != nil {
			return nil, err
		}
		return d, nil
	})

	sqlite.MustRegisterDeterministicScalarFunction(sqlFuncFold, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case nil:
			return nil, nil
		case string:
			return casefold(v), nil
		case []byte:
			return casefold(string(v)), nil
		default:
			return casefold(fmt.Sprint(v)), nil
		}
	})
}
