package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSetOnceFields(t *testing.T) {
	m := Merge(Memory{}, ExtractionData{
		Objective:          "learn Rust",
		RelevantExperience: "5 years Python",
	})
	assert.Equal(t, "learn Rust", m.Objective)
	assert.Equal(t, "5 years Python", m.RelevantExperience)

	// A later extraction with different values must not overwrite.
	m2 := Merge(m, ExtractionData{
		Objective:          "learn Go",
		RelevantExperience: "none",
		Background:         "data engineering",
	})
	assert.Equal(t, "learn Rust", m2.Objective)
	assert.Equal(t, "5 years Python", m2.RelevantExperience)
	assert.Equal(t, "data engineering", m2.Background)
}

func TestMergeSetFieldsAppendUnique(t *testing.T) {
	m := Merge(Memory{}, ExtractionData{
		RelevantSkills: []string{"Python", "SQL"},
	})
	m = Merge(m, ExtractionData{
		RelevantSkills: []string{"SQL", "Docker", "Python"},
		RequiredSkills: []string{"Rust"},
	})

	assert.Equal(t, []string{"Python", "SQL", "Docker"}, m.RelevantSkills)
	assert.Equal(t, []string{"Rust"}, m.RequiredSkills)
}

func TestMergeIgnoresEmptyItems(t *testing.T) {
	m := Merge(Memory{}, ExtractionData{Interests: []string{"", "web3", ""}})
	assert.Equal(t, []string{"web3"}, m.Interests)
}

func TestMergeConstraintsLastWriteWins(t *testing.T) {
	m := Merge(Memory{}, ExtractionData{TimePerWeek: "5 hours"})
	m = Merge(m, ExtractionData{TimePerWeek: "10 hours", Deadline: "3 months"})

	assert.Equal(t, "10 hours", m.TimePerWeek)
	assert.Equal(t, "3 months", m.Deadline)
}

func TestMergeLearningPathFlagIsSticky(t *testing.T) {
	m := Merge(Memory{}, ExtractionData{LearningPathDetected: true})
	require.True(t, m.LearningPathCreated)

	m = Merge(m, ExtractionData{})
	assert.True(t, m.LearningPathCreated, "flag must never reset")
}

func TestMergeEmptyResultIsIdentity(t *testing.T) {
	m := Memory{
		Objective:           "learn Rust",
		RelevantSkills:      []string{"Python"},
		RequiredSkills:      []string{"Rust"},
		TimePerWeek:         "10 hours",
		LearningPathCreated: true,
	}

	out := Merge(m, ExtractionData{})
	assert.Equal(t, m, out)
}

func TestMergeIsPure(t *testing.T) {
	m := Memory{RelevantSkills: []string{"Python"}}
	before := m.Clone()

	_ = Merge(m, ExtractionData{RelevantSkills: []string{"Go"}})
	assert.Equal(t, before, m, "merge must not mutate its input")
}

func TestMergeMonotonicity(t *testing.T) {
	m := Memory{}
	turns := []ExtractionData{
		{Objective: "learn ML", RelevantSkills: []string{"Python"}},
		{RequiredSkills: []string{"PyTorch"}, LearningPathDetected: true},
		{Objective: "something else"},
		{},
	}

	prevSkills := 0
	for _, d := range turns {
		m = Merge(m, d)
		total := len(m.RelevantSkills) + len(m.RequiredSkills) + len(m.Interests)
		assert.GreaterOrEqual(t, total, prevSkills, "set fields must never shrink")
		prevSkills = total
	}
	assert.Equal(t, "learn ML", m.Objective)
	assert.True(t, m.LearningPathCreated)
}

func TestExtractionDataIsZero(t *testing.T) {
	assert.True(t, ExtractionData{}.IsZero())
	assert.False(t, ExtractionData{Deadline: "tomorrow"}.IsZero())
	assert.False(t, ExtractionData{LearningPathDetected: true}.IsZero())
}

func TestSessionStateClone(t *testing.T) {
	s := &SessionState{
		SessionID:   "s1",
		Memory:      Memory{RelevantSkills: []string{"Go"}},
		ChatHistory: []Message{SystemMessage("sys"), UserMessage("hi")},
		Next:        NodeHumanInput,
		Pending:     &Interrupt{Value: "waiting"},
	}

	c := s.Clone()
	c.Memory.RelevantSkills[0] = "Rust"
	c.ChatHistory[1] = UserMessage("bye")
	c.Pending.Value = "changed"

	assert.Equal(t, "Go", s.Memory.RelevantSkills[0])
	assert.Equal(t, "hi", s.ChatHistory[1].Content)
	assert.Equal(t, "waiting", s.Pending.Value)
}
