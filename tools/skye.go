package tools

import (
	"context"
	"encoding/json"

	"github.com/skyelabs/skye-agent/catalog"
	"github.com/skyelabs/skye-agent/core"
)

// SkyeTools returns the tool set bound to the advisor's chat model:
// semantic search over learning content and over recognized skills.
func SkyeTools(cat *catalog.Catalog) []core.Tool {
	return []core.Tool{
		createSearchContentTool(cat),
		createSearchSkillsTool(cat),
	}
}

func createSearchContentTool(cat *catalog.Catalog) core.Tool {
	return New("search_content").
		Description("Search for learning content (articles, courses, videos, documentation) using semantic search. Use this when you want to recommend specific resources to the user.").
		Schema(ObjectSchema(map[string]any{
			"query":      StringProperty("Natural language search query describing the topic"),
			"difficulty": StringEnumProperty("Optional difficulty filter", "beginner", "intermediate", "advanced"),
			"limit":      IntegerProperty("Max results to return (default 5)"),
		}, "query")).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var input struct {
				Query      string `json:"query"`
				Difficulty string `json:"difficulty"`
				Limit      int    `json:"limit"`
			}
			if err := json.Unmarshal(params.Input, &input); err != nil {
				return &core.ToolResult{Error: "invalid input: " + err.Error()}, nil
			}

			results, err := cat.SearchContent(ctx, input.Query, input.Difficulty, input.Limit)
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				return &core.ToolResult{
					Success: true,
					Data: map[string]any{
						"results": []catalog.ContentResult{},
						"message": "No content found.",
					},
				}, nil
			}
			return &core.ToolResult{
				Success: true,
				Data:    map[string]any{"results": results},
			}, nil
		})
}

func createSearchSkillsTool(cat *catalog.Catalog) core.Tool {
	return New("search_skills").
		Description("Search for recognized skills by name using semantic search. Use this to look up specific skills when mapping the user's abilities or identifying what skills a learning path should cover.").
		Schema(ObjectSchema(map[string]any{
			"query": StringProperty("Skill name or topic to search for"),
			"limit": IntegerProperty("Max results (default 10)"),
		}, "query")).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var input struct {
				Query string `json:"query"`
				Limit int    `json:"limit"`
			}
			if err := json.Unmarshal(params.Input, &input); err != nil {
				return &core.ToolResult{Error: "invalid input: " + err.Error()}, nil
			}

			results, err := cat.SearchSkills(ctx, input.Query, input.Limit)
			if err != nil {
				return nil, err
			}
			return &core.ToolResult{
				Success: true,
				Data:    map[string]any{"skills": results},
			}, nil
		})
}
