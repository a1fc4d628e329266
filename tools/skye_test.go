package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyelabs/skye-agent/catalog"
	"github.com/skyelabs/skye-agent/core"
	"github.com/skyelabs/skye-agent/embedder/mock"
)

func toolByName(t *testing.T, set []core.Tool, name string) core.Tool {
	t.Helper()
	for _, tool := range set {
		if tool.Name() == name {
			return tool
		}
	}
	t.Fatalf("tool %s not in set", name)
	return nil
}

func seededTools(t *testing.T) []core.Tool {
	t.Helper()
	cat, err := catalog.New(mock.New(), nil)
	require.NoError(t, err)
	require.NoError(t, cat.AddContent(context.Background(), catalog.ContentItem{
		ID: "c1", Title: "Go Basics", Description: "Introductory course", Difficulty: "beginner",
	}))
	require.NoError(t, cat.AddSkills(context.Background(), catalog.Skill{
		ID: "s1", Name: "Go", Category: "programming",
	}))
	return SkyeTools(cat)
}

func TestSearchContentTool(t *testing.T) {
	tool := toolByName(t, seededTools(t), "search_content")

	res, err := tool.Execute(context.Background(), &core.ToolParams{
		Input: json.RawMessage(`{"query":"learn go"}`),
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	results, ok := data["results"].([]catalog.ContentResult)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "Go Basics", results[0].Title)
	_, hasMessage := data["message"]
	assert.False(t, hasMessage)
}

func TestSearchContentToolNoMatches(t *testing.T) {
	tool := toolByName(t, seededTools(t), "search_content")

	// The only item is beginner; the advanced filter leaves nothing.
	res, err := tool.Execute(context.Background(), &core.ToolParams{
		Input: json.RawMessage(`{"query":"learn go","difficulty":"advanced"}`),
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	data := res.Data.(map[string]any)
	assert.Equal(t, "No content found.", data["message"])
	assert.Empty(t, data["results"])
}

func TestSearchContentToolBadInput(t *testing.T) {
	tool := toolByName(t, seededTools(t), "search_content")

	res, err := tool.Execute(context.Background(), &core.ToolParams{
		Input: json.RawMessage(`{"query": 42}`),
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid input")
}

func TestSearchSkillsTool(t *testing.T) {
	tool := toolByName(t, seededTools(t), "search_skills")

	res, err := tool.Execute(context.Background(), &core.ToolParams{
		Input: json.RawMessage(`{"query":"go"}`),
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	data := res.Data.(map[string]any)
	skills, ok := data["skills"].([]catalog.SkillResult)
	require.True(t, ok)
	require.Len(t, skills, 1)
	assert.Equal(t, "Go", skills[0].Name)
}

func TestToolSchemas(t *testing.T) {
	for _, tool := range seededTools(t) {
		schema := tool.InputSchema()
		assert.Equal(t, "object", schema["type"], tool.Name())
		props, ok := schema["properties"].(map[string]any)
		require.True(t, ok, tool.Name())
		assert.Contains(t, props, "query", tool.Name())
		assert.Equal(t, []string{"query"}, schema["required"], tool.Name())
	}
}
