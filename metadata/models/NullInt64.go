package models

import (
	"database/sql"
	"encoding/json"
)

// NullInt64 supports setting a null value for an int64 datatype from a database
type NullInt64 struct {
	sql.NullInt64
}

// MarshalJSON will return the jsonified expression of NullInt64
func (r NullInt64) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Int64)
}

// ToNullInt64 is a helper to convert an int64 to the NullInt64 type
func ToNullInt64(i int64) NullInt64 {
	return NullInt64{sql.NullInt64{Int64: i, Valid: true}}
}
