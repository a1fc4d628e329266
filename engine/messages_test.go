package engine

import (
	"fmt"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyelabs/skye-agent/core"
)

func TestToAnthropicMessagesWindow(t *testing.T) {
	history := []core.Message{core.SystemMessage("prompt")}
	for i := 0; i < 30; i++ {
		history = append(history, core.UserMessage(fmt.Sprintf("u%d", i)))
		history = append(history, core.AssistantMessage(fmt.Sprintf("a%d", i)))
	}

	out := toAnthropicMessages(history, historyWindow)
	require.Len(t, out, historyWindow)

	// The oldest exchanges fall off; the last assistant reply survives.
	first := out[0].Content[0].OfText
	require.NotNil(t, first)
	assert.Equal(t, "u20", first.Text)
	last := out[len(out)-1].Content[0].OfText
	require.NotNil(t, last)
	assert.Equal(t, "a29", last.Text)
}

func TestToAnthropicMessagesSkipsSystem(t *testing.T) {
	history := []core.Message{
		core.SystemMessage("prompt"),
		core.UserMessage("hello"),
	}
	out := toAnthropicMessages(history, historyWindow)
	require.Len(t, out, 1)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[0].Role)
}

func TestSetSystemEntry(t *testing.T) {
	history := setSystemEntry(nil, "v1")
	require.Len(t, history, 1)
	assert.Equal(t, core.RoleSystem, history[0].Role)
	assert.Equal(t, "v1", history[0].Content)

	history = append(history, core.UserMessage("hi"))
	history = setSystemEntry(history, "v2")
	require.Len(t, history, 2)
	assert.Equal(t, "v2", history[0].Content)
	assert.Equal(t, "hi", history[1].Content)
}
