package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyelabs/skye-agent/embedder/mock"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := New(mock.New(), nil)
	require.NoError(t, err)
	return cat
}

func seedContent(t *testing.T, cat *Catalog) {
	t.Helper()
	require.NoError(t, cat.AddContent(context.Background(),
		ContentItem{ID: "c1", Title: "Go by Example", Description: "Hands-on Go introduction", Difficulty: "beginner", URL: "https://example.com/go", Provider: "example"},
		ContentItem{ID: "c2", Title: "Advanced Go Concurrency", Description: "Channels, errgroups and pipelines", Difficulty: "advanced"},
		ContentItem{ID: "c3", Title: "SQL Fundamentals", Description: "Relational modeling basics", Difficulty: "beginner"},
	))
}

func TestSearchContentEmpty(t *testing.T) {
	cat := newTestCatalog(t)
	results, err := cat.SearchContent(context.Background(), "anything", "", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchContentReturnsIndexedFields(t *testing.T) {
	cat := newTestCatalog(t)
	seedContent(t, cat)

	// The default limit exceeds the collection size; the query clamps
	// instead of failing.
	results, err := cat.SearchContent(context.Background(), "learn Go", "", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byID := map[string]ContentResult{}
	for _, r := range results {
		byID[r.ID] = r
	}
	hit, ok := byID["c1"]
	require.True(t, ok)
	assert.Equal(t, "Go by Example", hit.Title)
	assert.Equal(t, "Hands-on Go introduction", hit.Description)
	assert.Equal(t, "beginner", hit.Difficulty)
	assert.Equal(t, "https://example.com/go", hit.URL)
	assert.Equal(t, "example", hit.Provider)
}

func TestSearchContentDifficultyFilter(t *testing.T) {
	cat := newTestCatalog(t)
	seedContent(t, cat)

	results, err := cat.SearchContent(context.Background(), "learn", "advanced", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ID)
}

func TestSearchSkills(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.AddSkills(context.Background(),
		Skill{ID: "s1", Name: "Go", Category: "programming"},
		Skill{ID: "s2", Name: "PostgreSQL", Category: "database"},
	))

	results, err := cat.SearchSkills(context.Background(), "Go", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Category)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"content": [{"id": "c1", "title": "Go Tour", "description": "Official tour", "difficulty": "beginner"}],
		"skills": [{"id": "s1", "name": "Go", "category": "programming"}]
	}`), 0o600))

	cat := newTestCatalog(t)
	require.NoError(t, cat.LoadFile(context.Background(), path))

	content, err := cat.SearchContent(context.Background(), "tour", "", 5)
	require.NoError(t, err)
	assert.Len(t, content, 1)
	skills, err := cat.SearchSkills(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Len(t, skills, 1)
}

func TestLoadFileMissing(t *testing.T) {
	cat := newTestCatalog(t)
	assert.Error(t, cat.LoadFile(context.Background(), "/nonexistent/catalog.json"))
}
