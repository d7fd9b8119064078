// Package queue persists conversion requests in SQLite so they survive
// restarts and can be drained one at a time.
//
// The Store manages database connections and schema initialization. Requests
// move through a small lifecycle: pending, converting, completed or failed.
// A converting request records its conversion directory so an interrupted
// run can be resumed rather than restarted. Schema changes bump the version
// in schema.go; users clear the database to adopt the new schema.
package queue
