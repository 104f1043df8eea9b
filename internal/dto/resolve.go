package dto

// ChangeEntry is the JSON form of one constraint-driven change.
type ChangeEntry struct {
	Field    string `json:"field"`
	Before   any    `json:"before"`
	After    any    `json:"after"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
}

// ResolveResponse describes how a query resolved, for operators debugging a
// chart URL.
type ResolveResponse struct {
	View      string         `json:"view"`
	State     map[string]any `json:"state"`
	Overrides []string       `json:"overrides"`
	Changes   []ChangeEntry  `json:"changes"`
	Converged bool           `json:"converged"`
	Digest    string         `json:"digest"`
	Canonical string         `json:"canonical"`
}
