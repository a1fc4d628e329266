package workflow

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/skyelabs/skye-agent/core"
)

// SerializeState renders a checkpoint as a plain JSON-compatible map for
// the state inspection endpoint. Pending interrupts are tagged with
// "__interrupt__" so clients can distinguish a suspension marker from
// ordinary data.
func SerializeState(state *core.SessionState) map[string]any {
	raw, err := sonic.Marshal(state)
	if err != nil {
		return map[string]any{"session_id": state.SessionID}
	}
	var out map[string]any
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return map[string]any{"session_id": state.SessionID}
	}

	if state.Pending != nil {
		out["pending"] = makeSerializable(state.Pending)
	}
	return out
}

// makeSerializable converts a value into JSON-compatible primitives,
// tagging interrupts and recursing through containers. Values with no
// natural JSON form degrade to their string rendering rather than
// failing the whole state dump.
func makeSerializable(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int, int32, int64, float32, float64:
		return t
	case *core.Interrupt:
		if t == nil {
			return nil
		}
		return map[string]any{"__interrupt__": true, "value": makeSerializable(t.Value)}
	case core.Interrupt:
		return map[string]any{"__interrupt__": true, "value": makeSerializable(t.Value)}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = makeSerializable(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = makeSerializable(val)
		}
		return out
	default:
		raw, err := sonic.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		var plain any
		if err := sonic.Unmarshal(raw, &plain); err != nil {
			return fmt.Sprintf("%v", t)
		}
		return plain
	}
}
