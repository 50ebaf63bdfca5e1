package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// NullTime supports setting a null value for a time datatype from a database
type NullTime struct {
	sql.NullTime
}

// MarshalJSON will return the jsonified expression of NullTime
func (r NullTime) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return json.Marshal(nil)
	}
	return json.Marshal(r.Time)
}

// ToNullTime is a helper to convert a time to the NullTime type
func ToNullTime(t time.Time) NullTime {
	return NullTime{sql.NullTime{Time: t, Valid: !t.IsZero()}}
}
