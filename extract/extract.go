// Package extract turns raw conversation turns into structured profile
// data. It runs a deterministic (temperature 0) completion with a single
// forced tool whose input schema mirrors core.ExtractionData.
//
// Extraction is an optimization, never a correctness requirement: any
// failure — transport error, malformed output, missing tool call —
// degrades to an empty result and the conversation proceeds with the
// profile unchanged.
package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/skyelabs/skye-agent/core"
	"github.com/skyelabs/skye-agent/tools"
)

// recordToolName is the forced tool carrying the extraction schema.
const recordToolName = "record_profile"

const maxExtractionTokens = 500

const extractionSystemPrompt = `Extract structured information from the user's message and the assistant's response.
Fill in any new information clearly stated or strongly implied.
Omit fields with no new information; use [] for empty arrays.

IMPORTANT - Skills extraction:
- relevant_skills: Skills the user ALREADY HAS or CURRENTLY KNOWS (e.g., "I know Python", "experienced in programming", "professional developer")
- required_skills: Skills the user NEEDS TO LEARN or wants to acquire (e.g., "want to learn ML", "need to understand RL", "looking to master AI")
- When extracting from experience/background, put known skills in relevant_skills
- When extracting from objectives/goals, put target skills in required_skills
- A skill never belongs in both lists at once
- Be specific and granular with skill names

Set learning_path_detected to true if the assistant's response contains a structured learning path with milestones, phases, steps, or weeks.`

// Completer abstracts the Anthropic Messages API so tests can stub the
// model.
type Completer interface {
	Complete(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// Pipeline runs structured extraction over finished turns.
type Pipeline struct {
	completer Completer
	model     string
	log       *zap.Logger
}

// New creates an extraction pipeline using the given model.
func New(completer Completer, model string, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		completer: completer,
		model:     model,
		log:       log.Named("extract"),
	}
}

// Extract runs one extraction pass over a completed turn. It never
// returns an error: on any failure the zero ExtractionData comes back
// and the caller proceeds with unchanged memory.
func (p *Pipeline) Extract(ctx context.Context, userText, assistantText string) core.ExtractionData {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   maxExtractionTokens,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: extractionSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				fmt.Sprintf("User message: %s\n\nAssistant response: %s", userText, assistantText),
			)),
		},
		Tools: []anthropic.ToolUnionParam{extractionTool()},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: recordToolName},
		},
	}

	resp, err := p.completer.Complete(ctx, params)
	if err != nil {
		p.log.Warn("extraction call failed", zap.Error(err))
		return core.ExtractionData{}
	}

	for _, block := range resp.Content {
		if block.Type != "tool_use" || block.Name != recordToolName {
			continue
		}
		var data core.ExtractionData
		if err := json.Unmarshal(block.Input, &data); err != nil {
			p.log.Warn("extraction output malformed", zap.Error(err))
			return core.ExtractionData{}
		}
		return data
	}

	p.log.Warn("extraction response contained no tool call")
	return core.ExtractionData{}
}

// extractionTool builds the forced tool whose input schema mirrors
// core.ExtractionData field for field.
func extractionTool() anthropic.ToolUnionParam {
	skillArray := func(desc string) map[string]any {
		return tools.ArrayProperty(desc, tools.StringProperty(""))
	}
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        recordToolName,
			Description: anthropic.String("Record structured profile information learned from this conversation turn."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]any{
					"objective":           tools.StringProperty("The user's learning objective, if newly stated"),
					"relevant_experience": tools.StringProperty("The user's current experience relevant to the objective"),
					"background":          tools.StringProperty("The user's professional or educational background"),
					"skill_level":         tools.StringProperty("Overall skill level, e.g. beginner, intermediate, advanced"),
					"relevant_skills":     skillArray("Skills the user ALREADY HAS"),
					"required_skills":     skillArray("Skills the user WANTS TO ACQUIRE"),
					"interests":           skillArray("Topics the user expressed interest in"),
					"time_per_week":       tools.StringProperty("Time the user can invest per week"),
					"deadline":            tools.StringProperty("Any stated deadline for reaching the objective"),
					"learning_path_detected": tools.BooleanProperty(
						"True if the assistant response contains a structured learning path"),
				},
			},
		},
	}
}
