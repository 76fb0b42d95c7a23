// Package store persists corpora, feature vectors, and pipeline runs in
// SQLite. It supports both the pure Go driver (modernc.org/sqlite, the
// default) and the CGO driver (mattn/go-sqlite3, behind the cgo_sqlite
// build tag).
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite, no CGO required
//   - CGO mode (-tags cgo_sqlite, CGO_ENABLED=1): mattn/go-sqlite3
//
// Use Open instead of sql.Open so the correct driver is selected.
package store

import (
	"database/sql"
)

// DriverName returns the SQL driver name in use.
func DriverName() string { return driverName }

// DriverType returns "purego" or "cgo".
func DriverType() string { return driverType }

// IsCGO reports whether the CGO implementation is in use.
func IsCGO() bool { return driverType == "cgo" }

// openDB opens a SQLite database with the selected driver.
func openDB(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// DriverInfo describes the SQLite driver configuration.
type DriverInfo struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// Info returns the current SQLite driver configuration.
func Info() DriverInfo {
	return DriverInfo{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
