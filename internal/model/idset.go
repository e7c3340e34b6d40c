package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IDSet is an ordered, duplicate-free set of row ids. It is persisted as a
// JSON array in a TEXT column; the storage layer does not enforce
// uniqueness, so membership is checked here before every insert.
type IDSet []int64

// Contains reports whether id is a member of the set.
func (s IDSet) Contains(id int64) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id if it is not already present and reports whether the set
// changed.
func (s *IDSet) Add(id int64) bool {
	if s.Contains(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// Remove deletes id, preserving the order of the remaining members, and
// reports whether the set changed.
func (s *IDSet) Remove(id int64) bool {
	for i, v := range *s {
		if v == id {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

// Value implements driver.Valuer. An empty set serializes as "[]" so the
// column never holds NULL.
func (s IDSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]int64(s))
	if err != nil {
		return nil, fmt.Errorf("marshal id set: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner, accepting TEXT or BLOB columns. Duplicates
// in stored data are dropped on read.
func (s *IDSet) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = IDSet{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan id set: unsupported type %T", src)
	}

	if len(data) == 0 {
		*s = IDSet{}
		return nil
	}

	var raw []int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("scan id set: %w", err)
	}

	out := make(IDSet, 0, len(raw))
	for _, id := range raw {
		out.Add(id)
	}
	*s = out
	return nil
}
