// Package normalize canonicalizes permit text and status values before matching.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Text returns s in NFKC form, upper-cased, trimmed, with runs of
// whitespace collapsed to a single space.
//
// A Caser is stateful, so one is built per call.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = cases.Upper(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Normalized status values.
const (
	StatusIssued          = "issued"
	StatusUnderInspection = "under inspection"
	StatusApplication     = "application"
	StatusNotIssued       = "not issued"
	StatusCompleted       = "completed"
	StatusClosed          = "closed"
	StatusRevoked         = "revoked"
	StatusCancelled       = "cancelled"
	StatusSuspended       = "suspended"
)

var statusAliases = map[string]string{
	"permit issued":        StatusIssued,
	"issued":               StatusIssued,
	"inspection":           StatusUnderInspection,
	"under inspection":     StatusUnderInspection,
	"application":          StatusApplication,
	"application received": StatusApplication,
	"not issued":           StatusNotIssued,
	"completed":            StatusCompleted,
	"complete":             StatusCompleted,
	"work completed":       StatusCompleted,
	"closed":               StatusClosed,
	"revoked":              StatusRevoked,
	"cancelled":            StatusCancelled,
	"canceled":             StatusCancelled,
	"suspended":            StatusSuspended,
}

// Status maps a raw permit status onto its canonical lower-case form.
// Unknown values are lower-cased with whitespace collapsed.
func Status(raw string) string {
	s := strings.Join(strings.Fields(strings.ToLower(norm.NFKC.String(raw))), " ")
	if canon, ok := statusAliases[s]; ok {
		return canon
	}
	return s
}
