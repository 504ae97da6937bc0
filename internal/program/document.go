package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDocument = errors.New("invalid program document")

// Document is the program tree as exchanged with the assistant.
type Document struct {
	TrainingCycleLength int         `json:"training_cycle_length"`
	Constraints         Constraints `json:"constraints"`
	Notes               string      `json:"notes"`
	Cycles              []CycleDoc  `json:"cycles"`
}

type Constraints struct {
	Injuries  string `json:"injuries"`
	Equipment string `json:"equipment"`
}

type CycleDoc struct {
	DayIndex     int      `json:"day_index"`
	ExerciseType int      `json:"exercise_type"`
	Sets         []SetDoc `json:"sets"`
}

type SetDoc struct {
	FocusArea string        `json:"focus_area"`
	Exercises []ExerciseDoc `json:"exercises"`
}

type ExerciseDoc struct {
	Name        string  `json:"name"`
	Sets        int     `json:"sets"`
	Reps        int     `json:"reps"`
	Unit        string  `json:"unit"`
	WeightType  string  `json:"weight_type,omitempty"`
	WeightValue float64 `json:"weight_value,omitempty"`
	Rest        int     `json:"rest"`
}

// ParseDocument decodes the assistant's final text into a Document. The model
// sometimes wraps the JSON in a markdown code fence, so strip that first.
func ParseDocument(text string) (*Document, error) {
	raw := stripCodeFence(text)

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate rejects partially formed trees: a document is only usable when
// every cycle has sets and every set has named exercises.
func (d *Document) Validate() error {
	if d.TrainingCycleLength <= 0 {
		return fmt.Errorf("%w: training_cycle_length must be positive", ErrInvalidDocument)
	}
	if len(d.Cycles) == 0 {
		return fmt.Errorf("%w: no cycles", ErrInvalidDocument)
	}
	for i, c := range d.Cycles {
		if len(c.Sets) == 0 {
			return fmt.Errorf("%w: cycle %d has no sets", ErrInvalidDocument, i)
		}
		for j, s := range c.Sets {
			if len(s.Exercises) == 0 {
				return fmt.Errorf("%w: cycle %d set %d has no exercises", ErrInvalidDocument, i, j)
			}
			for _, e := range s.Exercises {
				if strings.TrimSpace(e.Name) == "" {
					return fmt.Errorf("%w: cycle %d set %d has an unnamed exercise", ErrInvalidDocument, i, j)
				}
				if e.Sets <= 0 || e.Reps <= 0 {
					return fmt.Errorf("%w: exercise %q needs positive sets and reps", ErrInvalidDocument, e.Name)
				}
			}
		}
	}
	return nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
