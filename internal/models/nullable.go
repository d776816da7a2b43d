package models

import "encoding/json"

// NullableString distinguishes three JSON states for a string field:
// - absent: Set=false, Valid=false
// - present with null: Set=true, Valid=false
// - present with value: Set=true, Valid=true
//
// Standard unmarshaling collapses "absent" and "null" into nil for pointer
// types, which breaks partial updates where null means "clear this field".
type NullableString struct {
	Value string
	Valid bool // true if Value is not null
	Set   bool // true if field was present in JSON
}

// UnmarshalJSON implements custom JSON unmarshaling for NullableString.
func (ns *NullableString) UnmarshalJSON(data []byte) error {
	ns.Set = true

	if string(data) == "null" {
		ns.Valid = false
		ns.Value = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ns.Value = s
	ns.Valid = true
	return nil
}

// MarshalJSON implements custom JSON marshaling for NullableString.
func (ns NullableString) MarshalJSON() ([]byte, error) {
	if !ns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(ns.Value)
}

// ToPtr returns nil when the value is null, otherwise a pointer to it.
func (ns NullableString) ToPtr() *string {
	if !ns.Valid {
		return nil
	}
	return &ns.Value
}

// NullableFloat64 is the float counterpart of NullableString, used for
// optional numeric targets where null means "remove the target".
type NullableFloat64 struct {
	Value float64
	Valid bool
	Set   bool
}

// UnmarshalJSON implements custom JSON unmarshaling for NullableFloat64.
func (nf *NullableFloat64) UnmarshalJSON(data []byte) error {
	nf.Set = true

	if string(data) == "null" {
		nf.Valid = false
		nf.Value = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	nf.Value = f
	nf.Valid = true
	return nil
}

// MarshalJSON implements custom JSON marshaling for NullableFloat64.
func (nf NullableFloat64) MarshalJSON() ([]byte, error) {
	if !nf.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(nf.Value)
}

// ToPtr returns nil when the value is null, otherwise a pointer to it.
func (nf NullableFloat64) ToPtr() *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Value
}
