package models

import "time"

// DBState is metadata about the database being used by this instance.
type DBState struct {
	// SchemaVersion is the version of the database schema in place.
	SchemaVersion string `db:"schema_version"`
	// Identifier is a unique identifier assigned when the schema was created.
	Identifier string `db:"identifier"`
	// CreatedOn is when the schema was created.
	CreatedOn time.Time `db:"created_on"`
}
