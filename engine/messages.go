package engine

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/skyelabs/skye-agent/core"
)

// historyWindow bounds how many trailing history messages are sent to
// the model each turn.
const historyWindow = 20

// toAnthropicMessages converts the conversational tail of a history into
// API message params. System entries are skipped (the system prompt is
// passed separately and re-rendered per turn); tool exchanges are not
// persisted in history, so only user and assistant turns remain.
func toAnthropicMessages(history []core.Message, window int) []anthropic.MessageParam {
	convo := make([]core.Message, 0, len(history))
	for _, m := range history {
		if m.Role == core.RoleUser || m.Role == core.RoleAssistant {
			convo = append(convo, m)
		}
	}
	if window > 0 && len(convo) > window {
		convo = convo[len(convo)-window:]
	}

	out := make([]anthropic.MessageParam, 0, len(convo))
	for _, m := range convo {
		switch m.Role {
		case core.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case core.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

// setSystemEntry replaces the system message at index 0, or prepends one
// when the history has none yet. This is the only in-place replacement
// the history model allows.
func setSystemEntry(history []core.Message, prompt string) []core.Message {
	if len(history) > 0 && history[0].Role == core.RoleSystem {
		history[0].Content = prompt
		return history
	}
	return append([]core.Message{core.SystemMessage(prompt)}, history...)
}
