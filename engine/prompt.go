package engine

import (
	"strings"

	"github.com/skyelabs/skye-agent/core"
)

// WelcomeMessage is returned for an empty first message, without a
// model call.
const WelcomeMessage = "Hi! I'm here to help you create a personalized learning path. " +
	"To get started, could you tell me a bit about yourself and what you're looking to learn?"

// FarewellMessage is returned when the user ends the session.
const FarewellMessage = "Thank you for the conversation! Your learning path and progress " +
	"are saved. Come back anytime to continue. Good luck!"

// endKeywords terminate the session when present anywhere in the user
// message, case-insensitively.
var endKeywords = []string{"goodbye", "bye", "exit", "quit", "end session"}

// IsFarewell reports whether msg asks to end the session.
func IsFarewell(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range endKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

const baseSystemPrompt = `You are an expert AI learning advisor that helps users build personalized learning paths.

Your conversation goal:
1. Understand what they want to achieve (objective)
2. Assess their current knowledge and experience
3. Understand constraints (time, budget, learning style)
4. Create a practical, actionable learning path

Guidelines:
- Be conversational and natural - don't follow a rigid script
- Ask follow-up questions when you need clarity for what they are missing to achieve their goal
- If they provide rich information upfront, don't ask redundant questions
- Move to creating the learning path when you have enough context
- The learning path should have 3-6 milestones with specific projects and resources
- Keep the questions to a minimum and only ask for missing information that is essential to creating the minimum learning path

Tools:
- You have access to search_content and search_skills tools.
- Use search_content when you want to find specific learning resources (articles, courses, videos) to recommend.
- Use search_skills to look up recognized skills in the database when mapping the user's abilities.
- Only use tools when they add value - don't search for every topic the user mentions.`

// BuildSystemPrompt renders the dynamic system prompt from the current
// memory profile. It is regenerated on every turn, never cached, so the
// known/still-need guidance always reflects the latest profile.
func BuildSystemPrompt(mem core.Memory) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	b.WriteString("\n\nCurrent context:\n")
	for i, part := range contextParts(mem) {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(part)
	}
	return b.String()
}

// contextParts builds the context lines showing what is known versus
// still missing, ending with a guidance line chosen by fixed priority.
func contextParts(mem core.Memory) []string {
	var parts []string

	if mem.Objective != "" {
		parts = append(parts, "Objective: "+mem.Objective)
	} else {
		parts = append(parts, "Still need: Clear learning objective")
	}
	if mem.RelevantExperience != "" {
		parts = append(parts, "Experience: "+mem.RelevantExperience)
	} else {
		parts = append(parts, "Still need: Current skill level and experience")
	}

	if mem.Background != "" {
		parts = append(parts, "Background: "+mem.Background)
	}
	if mem.SkillLevel != "" {
		parts = append(parts, "Skill Level: "+mem.SkillLevel)
	}
	if len(mem.Interests) > 0 {
		parts = append(parts, "Interests: "+strings.Join(mem.Interests, ", "))
	}
	if len(mem.RelevantSkills) > 0 {
		parts = append(parts, "Skills User Already Has: "+strings.Join(mem.RelevantSkills, ", "))
	}
	if len(mem.RequiredSkills) > 0 {
		parts = append(parts, "Required Skills to Learn: "+strings.Join(mem.RequiredSkills, ", "))
		parts = append(parts, "IMPORTANT: Focus the learning path on the required skills. "+
			"Do NOT include skills the user already has.")
	}

	var constraints []string
	if mem.TimePerWeek != "" {
		constraints = append(constraints, "Time: "+mem.TimePerWeek)
	}
	if mem.Deadline != "" {
		constraints = append(constraints, "Deadline: "+mem.Deadline)
	}
	if len(constraints) > 0 {
		parts = append(parts, "Constraints: "+strings.Join(constraints, ", "))
	}

	switch {
	case mem.LearningPathCreated:
		parts = append(parts, "Learning path has been created")
	default:
		var missing []string
		if mem.Objective == "" {
			missing = append(missing, "learning objective")
		}
		if mem.RelevantExperience == "" {
			missing = append(missing, "experience level")
		}
		switch {
		case len(missing) > 0:
			parts = append(parts, "Focus on understanding: "+strings.Join(missing, ", "))
		case mem.TimePerWeek == "" && mem.Deadline == "":
			parts = append(parts, "Consider asking about time availability or constraints")
		default:
			parts = append(parts, "Ready to create learning path!")
		}
	}

	return parts
}
