// Package session defines the session record BOS reads to know which
// components belong to which session (spec.md §3).
package session

import "time"

// Session is the active application of a template to a concrete set of
// components.
type Session struct {
	Name       string    `json:"name"`
	Template   string    `json:"template"`
	Status     string    `json:"status"`
	Complete   bool      `json:"complete"`
	Components []string  `json:"components"`
	MinAge     string    `json:"min_age,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
