package core

// Workflow node names. A session whose Next is empty has reached the
// terminal state and cannot be resumed.
const (
	NodeChat       = "chat"
	NodeHumanInput = "human_input"
)

// Interrupt is the suspension marker embedded in a checkpoint while a
// session is parked at the human-input node. The state serializer renders
// it as a tagged object so clients can recognize it on the wire.
type Interrupt struct {
	Value any `json:"value"`
}

// SessionState is the workflow's checkpoint unit, persisted keyed by
// session id after every completed turn.
type SessionState struct {
	SessionID          string     `json:"session_id"`
	UserID             string     `json:"user_id,omitempty"`
	Memory             Memory     `json:"memory"`
	ChatHistory        []Message  `json:"chat_history"`
	PendingUserMessage string     `json:"pending_user_message,omitempty"`
	LastResponse       string     `json:"last_response,omitempty"`
	Next               string     `json:"next,omitempty"`
	Pending            *Interrupt `json:"pending,omitempty"`
	CreatedAt          int64      `json:"created_at,omitempty"`
	UpdatedAt          int64      `json:"updated_at,omitempty"`
}

// Terminal reports whether the session has ended and can no longer be
// resumed.
func (s *SessionState) Terminal() bool {
	return s.Next == ""
}

// Clone returns a deep copy of the session state. Turn execution works on
// a clone so a failed turn never leaks partial updates into committed
// state.
func (s *SessionState) Clone() *SessionState {
	out := *s
	out.Memory = s.Memory.Clone()
	if s.ChatHistory != nil {
		out.ChatHistory = make([]Message, len(s.ChatHistory))
		copy(out.ChatHistory, s.ChatHistory)
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return &out
}
