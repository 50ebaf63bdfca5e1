package models

import (
	"database/sql"
	"encoding/json"
)

// NullString supports setting a null value for a string datatype from a database
type NullString struct {
	sql.NullString
}

// MarshalJSON will return the jsonified expression of NullString
func (r NullString) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String)
}

// UnmarshalJSON establishes validity based upon presence of a value
func (r *NullString) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &r.String); err != nil {
		return err
	}
	r.Valid = len(r.String) > 0
	return nil
}

// ToNullString is a helper to convert a raw string to the NullString type
func ToNullString(s string) NullString {
	return NullString{sql.NullString{String: s, Valid: len(s) > 0}}
}
