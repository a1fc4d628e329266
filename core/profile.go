package core

// Memory is the structured profile accumulated about a user across one
// conversational session. It mirrors what the advisor has learned so far
// and drives the dynamic system prompt.
//
// Field semantics:
//   - Objective, RelevantExperience, Background, SkillLevel: set once,
//     never overwritten once non-empty.
//   - RelevantSkills, RequiredSkills, Interests: append-only deduplicated
//     sets, insertion order preserved.
//   - TimePerWeek, Deadline: last write wins (constraints legitimately
//     change mid-conversation).
//   - LearningPathCreated: monotonic, once true it stays true.
type Memory struct {
	Objective           string   `json:"objective,omitempty"`
	RelevantExperience  string   `json:"relevant_experience,omitempty"`
	Background          string   `json:"background,omitempty"`
	SkillLevel          string   `json:"skill_level,omitempty"`
	RelevantSkills      []string `json:"relevant_skills,omitempty"`
	RequiredSkills      []string `json:"required_skills,omitempty"`
	Interests           []string `json:"interests,omitempty"`
	TimePerWeek         string   `json:"time_per_week,omitempty"`
	Deadline            string   `json:"deadline,omitempty"`
	LearningPathCreated bool     `json:"learning_path_created"`
}

// ExtractionData is the transient result of one extraction pass over a
// conversation turn. It is consumed immediately by Merge and never
// persisted on its own.
//
// The schema deliberately splits skills the user already has
// (RelevantSkills) from skills the user wants to acquire (RequiredSkills);
// downstream consumers scope recommendations to RequiredSkills only.
type ExtractionData struct {
	Objective            string   `json:"objective,omitempty"`
	RelevantExperience   string   `json:"relevant_experience,omitempty"`
	Background           string   `json:"background,omitempty"`
	SkillLevel           string   `json:"skill_level,omitempty"`
	RelevantSkills       []string `json:"relevant_skills,omitempty"`
	RequiredSkills       []string `json:"required_skills,omitempty"`
	Interests            []string `json:"interests,omitempty"`
	TimePerWeek          string   `json:"time_per_week,omitempty"`
	Deadline             string   `json:"deadline,omitempty"`
	LearningPathDetected bool     `json:"learning_path_detected,omitempty"`
}

// IsZero reports whether nothing was extracted.
func (d ExtractionData) IsZero() bool {
	return d.Objective == "" &&
		d.RelevantExperience == "" &&
		d.Background == "" &&
		d.SkillLevel == "" &&
		len(d.RelevantSkills) == 0 &&
		len(d.RequiredSkills) == 0 &&
		len(d.Interests) == 0 &&
		d.TimePerWeek == "" &&
		d.Deadline == "" &&
		!d.LearningPathDetected
}

// Merge folds an extraction result into a memory profile and returns the
// updated profile. The receiver-by-value signature makes it a pure
// function: neither input is mutated, so concurrent readers of the old
// profile are safe.
func Merge(current Memory, data ExtractionData) Memory {
	updated := current.Clone()

	// Set-once profile fields.
	if updated.Objective == "" {
		updated.Objective = data.Objective
	}
	if updated.RelevantExperience == "" {
		updated.RelevantExperience = data.RelevantExperience
	}
	if updated.Background == "" {
		updated.Background = data.Background
	}
	if updated.SkillLevel == "" {
		updated.SkillLevel = data.SkillLevel
	}

	// Append-only set fields.
	updated.RelevantSkills = appendUnique(updated.RelevantSkills, data.RelevantSkills)
	updated.RequiredSkills = appendUnique(updated.RequiredSkills, data.RequiredSkills)
	updated.Interests = appendUnique(updated.Interests, data.Interests)

	// Constraints: most recent value wins.
	if data.TimePerWeek != "" {
		updated.TimePerWeek = data.TimePerWeek
	}
	if data.Deadline != "" {
		updated.Deadline = data.Deadline
	}

	// Sticky flag.
	if data.LearningPathDetected {
		updated.LearningPathCreated = true
	}

	return updated
}

// Clone returns a deep copy of the profile. Slices are copied so the
// clone can grow independently of the original.
func (m Memory) Clone() Memory {
	out := m
	out.RelevantSkills = copyStrings(m.RelevantSkills)
	out.RequiredSkills = copyStrings(m.RequiredSkills)
	out.Interests = copyStrings(m.Interests)
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// appendUnique appends items not already present, preserving the order
// of both the existing set and the new items.
func appendUnique(existing, items []string) []string {
	if len(items) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s] = struct{}{}
	}
	out := existing
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
