// Package workspace groups a user's learning activity into workspaces
// and decides, for each new objective, whether it belongs to an existing
// workspace or warrants a new one.
package workspace

import (
	"context"
	"errors"
)

// ErrWorkspaceNotFound is returned by Store.Get for unknown ids.
var ErrWorkspaceNotFound = errors.New("workspace not found")

// Workspace status values.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Workspace is one learning context for a user, anchored on an
// objective embedding.
type Workspace struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Objective string    `json:"objective"`
	Embedding []float32 `json:"-"`
	Status    string    `json:"status"`
	SkillIDs  []string  `json:"skill_ids,omitempty"`
	CreatedAt int64     `json:"created_at,omitempty"`
}

// SkillLink attaches a skill to a workspace with its provenance.
type SkillLink struct {
	WorkspaceID string `json:"workspace_id"`
	SkillID     string `json:"skill_id"`
	Source      string `json:"source"`
}

// Candidate is a workspace considered during matching, with its cosine
// similarity to the query objective.
type Candidate struct {
	Workspace  *Workspace
	Similarity float64
}

// Store persists workspaces and answers nearest-neighbor queries over
// their objective embeddings.
type Store interface {
	// Nearest returns up to limit active workspaces for the user,
	// ordered by descending cosine similarity to the embedding.
	Nearest(ctx context.Context, userID string, embedding []float32, limit int) ([]Candidate, error)

	// Create persists a new workspace.
	Create(ctx context.Context, ws *Workspace) error

	// Get returns a workspace by id, or ErrWorkspaceNotFound.
	Get(ctx context.Context, id string) (*Workspace, error)
}
