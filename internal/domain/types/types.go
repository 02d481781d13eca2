// Package types contains common types used across the application.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Table maps tournament IDs to lists of names (winning trainers or banned
// entrants). Keys keep their insertion order. A nil *Table is a valid, empty
// table for reads and stands for "not provided"; writes need a non-nil
// *Table, which may be the zero value.
type Table struct {
	keys  []string
	names map[string][]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{names: make(map[string][]string)}
}

// Set replaces the list for tournament id. A new id is appended to the key order.
func (t *Table) Set(id string, names []string) {
	if t.names == nil {
		t.names = make(map[string][]string)
	}
	if _, ok := t.names[id]; !ok {
		t.keys = append(t.keys, id)
	}
	t.names[id] = slices.Clone(names)
}

// Delete removes tournament id.
func (t *Table) Delete(id string) {
	if t == nil {
		return
	}
	if _, ok := t.names[id]; !ok {
		return
	}
	delete(t.names, id)
	t.keys = slices.DeleteFunc(t.keys, func(k string) bool { return k == id })
}

// Get returns the list for tournament id.
func (t *Table) Get(id string) ([]string, bool) {
	if t == nil {
		return nil, false
	}
	names, ok := t.names[id]
	return names, ok
}

// Contains reports whether name is listed for tournament id.
func (t *Table) Contains(id, name string) bool {
	names, ok := t.Get(id)
	return ok && slices.Contains(names, name)
}

// Keys returns the tournament IDs in insertion order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.keys)
}

// Len returns the number of tournaments in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Clone returns a deep copy. Cloning nil yields nil.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := &Table{keys: slices.Clone(t.keys), names: make(map[string][]string, len(t.names))}
	for k, v := range t.names {
		c.names[k] = slices.Clone(v)
	}
	return c
}

// MarshalJSON encodes the table as an object whose keys follow insertion order.
func (t *Table) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal table key %q: %w", k, err)
		}
		names := t.names[k]
		if names == nil {
			names = []string{}
		}
		val, err := json.Marshal(names)
		if err != nil {
			return nil, fmt.Errorf("marshal table entry %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IngestResult reports what happened to a batch of submitted rows.
type IngestResult struct {
	Accepted   int      `json:"accepted"`
	Duplicates int      `json:"duplicates"`
	IDs        []string `json:"ids"`
}

// Tournament describes one tournament and its reference table entries.
type Tournament struct {
	ID      string   `json:"id"`
	Active  bool     `json:"active"` // has at least one stored row
	Winners []string `json:"winners"`
	Bans    []string `json:"bans"`
}
