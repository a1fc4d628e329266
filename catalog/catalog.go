// Package catalog holds the embedded semantic indexes for learning
// content and recognized skills. It backs the search_content and
// search_skills tools with chromem-go, a pure Go embedded vector
// database; production deployments can swap a pgvector-backed catalog
// behind the same methods.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/skyelabs/skye-agent/embedder"
)

// ContentItem is one searchable learning resource.
type ContentItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ContentType string `json:"content_type"`
	SourceType  string `json:"source_type"`
	Difficulty  string `json:"difficulty"`
	URL         string `json:"url"`
	Duration    string `json:"duration"`
	Provider    string `json:"provider"`
}

// Skill is one recognized skill.
type Skill struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ContentResult is a content hit with its similarity score.
type ContentResult struct {
	ContentItem
	Relevance float64 `json:"relevance"`
}

// SkillResult is a skill hit with its similarity score.
type SkillResult struct {
	Skill
	Relevance float64 `json:"relevance"`
}

// Catalog wraps the content and skill vector indexes.
type Catalog struct {
	content  *chromem.Collection
	skills   *chromem.Collection
	embedder embedder.Embedder
	log      *zap.Logger

	mu           sync.RWMutex
	contentCount int
	skillCount   int
}

// New creates an empty catalog.
func New(emb embedder.Embedder, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db := chromem.NewDB()

	content, err := db.CreateCollection("content", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create content collection: %w", err)
	}
	skills, err := db.CreateCollection("skills", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create skills collection: %w", err)
	}

	return &Catalog{
		content:  content,
		skills:   skills,
		embedder: emb,
		log:      log.Named("catalog"),
	}, nil
}

// AddContent indexes learning resources.
func (c *Catalog) AddContent(ctx context.Context, items ...ContentItem) error {
	for _, item := range items {
		vec, err := c.embedder.Embed(ctx, item.Title+": "+item.Description)
		if err != nil {
			return fmt.Errorf("embed content %q: %w", item.Title, err)
		}
		doc := chromem.Document{
			ID:        item.ID,
			Content:   item.Description,
			Embedding: vec,
			Metadata: map[string]string{
				"title":        item.Title,
				"content_type": item.ContentType,
				"source_type":  item.SourceType,
				"difficulty":   item.Difficulty,
				"url":          item.URL,
				"duration":     item.Duration,
				"provider":     item.Provider,
			},
		}
		if err := c.content.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("index content %q: %w", item.Title, err)
		}
		c.mu.Lock()
		c.contentCount++
		c.mu.Unlock()
	}
	return nil
}

// AddSkills indexes recognized skills.
func (c *Catalog) AddSkills(ctx context.Context, skills ...Skill) error {
	for _, s := range skills {
		vec, err := c.embedder.Embed(ctx, s.Name)
		if err != nil {
			return fmt.Errorf("embed skill %q: %w", s.Name, err)
		}
		doc := chromem.Document{
			ID:        s.ID,
			Content:   s.Name,
			Embedding: vec,
			Metadata: map[string]string{
				"name":     s.Name,
				"category": s.Category,
			},
		}
		if err := c.skills.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("index skill %q: %w", s.Name, err)
		}
		c.mu.Lock()
		c.skillCount++
		c.mu.Unlock()
	}
	return nil
}

// SearchContent returns the content items nearest to query, optionally
// filtered by difficulty.
func (c *Catalog) SearchContent(ctx context.Context, query, difficulty string, limit int) ([]ContentResult, error) {
	if limit <= 0 {
		limit = 5
	}
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var where map[string]string
	if difficulty != "" {
		where = map[string]string{"difficulty": difficulty}
	}

	c.mu.RLock()
	count := c.contentCount
	c.mu.RUnlock()

	results, err := queryCollection(ctx, c.content, vec, limit, count, where)
	if err != nil {
		return nil, err
	}

	out := make([]ContentResult, 0, len(results))
	for _, r := range results {
		out = append(out, ContentResult{
			ContentItem: ContentItem{
				ID:          r.ID,
				Title:       r.Metadata["title"],
				Description: r.Content,
				ContentType: r.Metadata["content_type"],
				SourceType:  r.Metadata["source_type"],
				Difficulty:  r.Metadata["difficulty"],
				URL:         r.Metadata["url"],
				Duration:    r.Metadata["duration"],
				Provider:    r.Metadata["provider"],
			},
			Relevance: float64(r.Similarity),
		})
	}
	return out, nil
}

// SearchSkills returns the skills nearest to query.
func (c *Catalog) SearchSkills(ctx context.Context, query string, limit int) ([]SkillResult, error) {
	if limit <= 0 {
		limit = 10
	}
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	c.mu.RLock()
	count := c.skillCount
	c.mu.RUnlock()

	results, err := queryCollection(ctx, c.skills, vec, limit, count, nil)
	if err != nil {
		return nil, err
	}

	out := make([]SkillResult, 0, len(results))
	for _, r := range results {
		out = append(out, SkillResult{
			Skill: Skill{
				ID:       r.ID,
				Name:     r.Metadata["name"],
				Category: r.Metadata["category"],
			},
			Relevance: float64(r.Similarity),
		})
	}
	return out, nil
}

// queryCollection queries with the limit clamped to the collection
// size. chromem also rejects nResults larger than the filtered subset,
// which is only known after querying, so the limit shrinks on that
// error until the query fits.
func queryCollection(ctx context.Context, col *chromem.Collection, vec []float32, limit, count int, where map[string]string) ([]chromem.Result, error) {
	if limit > count {
		limit = count
	}

	for limit > 0 {
		results, err := col.QueryEmbedding(ctx, vec, limit, where, nil)
		if err == nil {
			return results, nil
		}
		if !isInsufficientDocsError(err) {
			return nil, fmt.Errorf("query collection: %w", err)
		}
		limit--
	}
	return nil, nil
}

func isInsufficientDocsError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "number of documents")
}

// seedFile is the on-disk layout accepted by LoadFile.
type seedFile struct {
	Content []ContentItem `json:"content"`
	Skills  []Skill       `json:"skills"`
}

// LoadFile seeds the catalog from a JSON file with top-level "content"
// and "skills" arrays.
func (c *Catalog) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}
	var seed seedFile
	if err := sonic.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse catalog file: %w", err)
	}
	if err := c.AddContent(ctx, seed.Content...); err != nil {
		return err
	}
	if err := c.AddSkills(ctx, seed.Skills...); err != nil {
		return err
	}
	c.log.Info("catalog seeded",
		zap.Int("content", len(seed.Content)),
		zap.Int("skills", len(seed.Skills)),
		zap.String("path", path))
	return nil
}
