package validation

import (
	"sort"
	"strings"
)

// Failure is a recoverable validation error mapping field names to messages.
type Failure struct {
	Fields map[string]string
}

// NewFailure returns a Failure with a single field message.
func NewFailure(field, message string) *Failure {
	f := &Failure{Fields: map[string]string{}}
	f.Add(field, message)
	return f
}

// Add records message for field unless the field already has one.
func (f *Failure) Add(field, message string) {
	if f.Fields == nil {
		f.Fields = map[string]string{}
	}
	if _, ok := f.Fields[field]; ok {
		return
	}
	f.Fields[field] = message
}

// Has reports whether field failed.
func (f *Failure) Has(field string) bool {
	_, ok := f.Fields[field]
	return ok
}

func (f *Failure) Error() string {
	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f.Fields[k])
	}

	return "validation failed: " + strings.Join(parts, "; ")
}
