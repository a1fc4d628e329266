package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyelabs/skye-agent/embedder"
)

const (
	// simThreshold is the minimum cosine similarity for a workspace to
	// be considered a match at all.
	simThreshold = 0.8

	// overlapThreshold is the minimum Jaccard skill overlap required
	// when both sides have skills to compare.
	overlapThreshold = 0.5

	simWeight     = 0.6
	overlapWeight = 0.4

	maxCandidates = 5

	maxNameLength = 60
)

// linkSourceAutoMatched marks skill links created by the matcher rather
// than by the user.
const linkSourceAutoMatched = "auto_matched"

// MatchResult reports where an objective landed.
type MatchResult struct {
	Workspace *Workspace  `json:"workspace"`
	Created   bool        `json:"created"`
	Score     float64     `json:"score"`
	Links     []SkillLink `json:"links,omitempty"`
}

// Matcher routes objectives to workspaces using embedding similarity
// blended with skill overlap.
type Matcher struct {
	store    Store
	embedder embedder.Embedder
	log      *zap.Logger
}

// NewMatcher creates a matcher over the given store and embedder.
func NewMatcher(store Store, emb embedder.Embedder, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{store: store, embedder: emb, log: log.Named("workspace")}
}

// FindOrCreate matches the objective against the user's active
// workspaces and creates a new one when nothing scores high enough.
//
// Two concurrent calls for the same user may both create a workspace;
// callers tolerate the occasional duplicate rather than paying for a
// global lock.
func (m *Matcher) FindOrCreate(ctx context.Context, userID, objective, title string, requiredSkills []string) (*MatchResult, error) {
	if objective == "" {
		return nil, fmt.Errorf("empty objective")
	}

	vec, err := m.embedder.Embed(ctx, objective)
	if err != nil {
		return nil, fmt.Errorf("embed objective: %w", err)
	}

	candidates, err := m.store.Nearest(ctx, userID, vec, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("query workspaces: %w", err)
	}

	if best, score := m.pickBest(candidates, requiredSkills); best != nil {
		m.log.Debug("matched existing workspace",
			zap.String("workspace_id", best.ID),
			zap.Float64("score", score))
		return &MatchResult{Workspace: best, Score: score}, nil
	}

	ws := &Workspace{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      workspaceName(title, objective),
		Objective: objective,
		Embedding: vec,
		Status:    StatusActive,
		SkillIDs:  requiredSkills,
		CreatedAt: time.Now().Unix(),
	}
	if err := m.store.Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	links := make([]SkillLink, 0, len(requiredSkills))
	for _, skill := range requiredSkills {
		links = append(links, SkillLink{
			WorkspaceID: ws.ID,
			SkillID:     skill,
			Source:      linkSourceAutoMatched,
		})
	}

	m.log.Info("created workspace",
		zap.String("workspace_id", ws.ID),
		zap.String("user_id", userID),
		zap.Int("skills", len(links)))
	return &MatchResult{Workspace: ws, Created: true, Score: 1, Links: links}, nil
}

// pickBest scores each candidate and returns the highest-scoring match,
// or nil when none clears the thresholds.
func (m *Matcher) pickBest(candidates []Candidate, requiredSkills []string) (*Workspace, float64) {
	var best *Workspace
	var bestScore float64

	for _, c := range candidates {
		if c.Similarity < simThreshold {
			continue
		}

		score := c.Similarity
		if len(requiredSkills) > 0 && len(c.Workspace.SkillIDs) > 0 {
			overlap := jaccard(requiredSkills, c.Workspace.SkillIDs)
			if overlap < overlapThreshold {
				continue
			}
			score = simWeight*c.Similarity + overlapWeight*overlap
		}

		if score > bestScore {
			best, bestScore = c.Workspace, score
		}
	}
	return best, bestScore
}

// jaccard computes case-insensitive Jaccard overlap of two skill lists.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[strings.ToLower(s)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[strings.ToLower(s)] = struct{}{}
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// workspaceName prefers the given title and falls back to a truncated
// objective.
func workspaceName(title, objective string) string {
	if title != "" {
		return title
	}
	if len(objective) > maxNameLength {
		return objective[:maxNameLength]
	}
	return objective
}
