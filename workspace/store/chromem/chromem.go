// Package chromem stores workspaces in chromem-go, a pure Go embedded
// vector database, with per-user collections for namespace isolation.
package chromem

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/skyelabs/skye-agent/workspace"
)

// Store keeps workspace records alongside their objective embeddings.
// chromem only persists document content and string metadata, so the
// full records live in an id-keyed map and chromem answers the
// similarity queries.
type Store struct {
	db          *chromem.DB
	log         *zap.Logger
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	counts      map[string]int
	workspaces  map[string]*workspace.Workspace
}

// New creates an empty in-process workspace store.
func New(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:          chromem.NewDB(),
		log:         log.Named("workspace_store"),
		collections: make(map[string]*chromem.Collection),
		counts:      make(map[string]int),
		workspaces:  make(map[string]*workspace.Workspace),
	}
}

// getOrCreateCollection returns the per-user collection, creating it on
// first use.
func (s *Store) getOrCreateCollection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[userID]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[userID]; ok {
		return col, nil
	}

	col, err := s.db.CreateCollection(fmt.Sprintf("workspaces_%s", userID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

func (s *Store) Create(ctx context.Context, ws *workspace.Workspace) error {
	col, err := s.getOrCreateCollection(ws.UserID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        ws.ID,
		Content:   ws.Objective,
		Embedding: ws.Embedding,
		Metadata: map[string]string{
			"user_id": ws.UserID,
			"status":  ws.Status,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	s.counts[ws.UserID]++
	s.workspaces[ws.ID] = ws
	s.mu.Unlock()

	s.log.Debug("stored workspace",
		zap.String("workspace_id", ws.ID),
		zap.String("user_id", ws.UserID))
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*workspace.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return nil, workspace.ErrWorkspaceNotFound
	}
	return ws, nil
}

func (s *Store) Nearest(ctx context.Context, userID string, embedding []float32, limit int) ([]workspace.Candidate, error) {
	col, err := s.getOrCreateCollection(userID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection, so clamp to
	// the number of documents we have added. The active-status filter
	// can shrink the candidate set further, which only surfaces as a
	// query error, so the limit also shrinks on that error.
	s.mu.RLock()
	count := s.counts[userID]
	s.mu.RUnlock()
	if limit > count {
		limit = count
	}

	var results []chromem.Result
	for limit > 0 {
		var err error
		results, err = col.QueryEmbedding(ctx, embedding, limit,
			map[string]string{"status": workspace.StatusActive}, nil)
		if err == nil {
			break
		}
		if !strings.Contains(err.Error(), "number of documents") {
			return nil, fmt.Errorf("query embedding: %w", err)
		}
		limit--
	}
	if limit == 0 {
		return nil, nil
	}

	candidates := make([]workspace.Candidate, 0, len(results))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, res := range results {
		ws, ok := s.workspaces[res.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, workspace.Candidate{
			Workspace:  ws,
			Similarity: float64(res.Similarity),
		})
	}
	return candidates, nil
}

// Archive marks a workspace inactive so matching skips it. chromem
// documents are immutable, so the document is re-added with updated
// metadata.
func (s *Store) Archive(ctx context.Context, id string) error {
	s.mu.Lock()
	ws, ok := s.workspaces[id]
	if ok {
		ws.Status = workspace.StatusArchived
	}
	s.mu.Unlock()
	if !ok {
		return workspace.ErrWorkspaceNotFound
	}

	col, err := s.getOrCreateCollection(ws.UserID)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:        ws.ID,
		Content:   ws.Objective,
		Embedding: ws.Embedding,
		Metadata: map[string]string{
			"user_id": ws.UserID,
			"status":  workspace.StatusArchived,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}
