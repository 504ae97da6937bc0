package program

import (
	"errors"
	"testing"
)

const sampleDocJSON = `{
	"training_cycle_length": 4,
	"constraints": {"injuries": "무릎 통증", "equipment": "바벨, 덤벨"},
	"notes": "주 4회 상하체 분할",
	"cycles": [
		{
			"day_index": 1,
			"exercise_type": 1,
			"sets": [
				{
					"focus_area": "하체",
					"exercises": [
						{"name": "스쿼트", "sets": 5, "reps": 5, "unit": "kg", "weight_type": "barbell", "weight_value": 80, "rest": 120},
						{"name": "런지", "sets": 3, "reps": 12, "unit": "kg", "rest": 90}
					]
				}
			]
		},
		{
			"day_index": 2,
			"exercise_type": 2,
			"sets": [
				{
					"focus_area": "상체",
					"exercises": [
						{"name": "벤치프레스", "sets": 5, "reps": 5, "unit": "kg", "weight_type": "barbell", "weight_value": 60, "rest": 120}
					]
				}
			]
		}
	]
}`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument(sampleDocJSON)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.TrainingCycleLength != 4 {
		t.Fatalf("expected cycle length 4, got %d", doc.TrainingCycleLength)
	}
	if len(doc.Cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(doc.Cycles))
	}
	if doc.Cycles[0].Sets[0].Exercises[0].Name != "스쿼트" {
		t.Fatalf("unexpected first exercise: %+v", doc.Cycles[0].Sets[0].Exercises[0])
	}
	if doc.Constraints.Injuries != "무릎 통증" {
		t.Fatalf("constraints not decoded: %+v", doc.Constraints)
	}
}

func TestParseDocumentStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + sampleDocJSON + "\n```"
	doc, err := ParseDocument(fenced)
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if len(doc.Cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(doc.Cycles))
	}

	bare := "```\n" + sampleDocJSON + "\n```"
	if _, err := ParseDocument(bare); err != nil {
		t.Fatalf("parse bare fence: %v", err)
	}
}

func TestParseDocumentRejectsGarbage(t *testing.T) {
	if _, err := ParseDocument("운동 프로그램을 만들 수 없습니다."); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestValidateRejectsPartialTrees(t *testing.T) {
	cases := []struct {
		name string
		doc  Document
	}{
		{"zero cycle length", Document{Cycles: []CycleDoc{{DayIndex: 1}}}},
		{"no cycles", Document{TrainingCycleLength: 4}},
		{"cycle without sets", Document{TrainingCycleLength: 4, Cycles: []CycleDoc{{DayIndex: 1}}}},
		{"set without exercises", Document{TrainingCycleLength: 4, Cycles: []CycleDoc{
			{DayIndex: 1, Sets: []SetDoc{{FocusArea: "하체"}}},
		}}},
		{"unnamed exercise", Document{TrainingCycleLength: 4, Cycles: []CycleDoc{
			{DayIndex: 1, Sets: []SetDoc{{Exercises: []ExerciseDoc{{Name: "  ", Sets: 3, Reps: 10}}}}},
		}}},
		{"non-positive reps", Document{TrainingCycleLength: 4, Cycles: []CycleDoc{
			{DayIndex: 1, Sets: []SetDoc{{Exercises: []ExerciseDoc{{Name: "스쿼트", Sets: 3, Reps: 0}}}}},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.doc.Validate(); !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("expected ErrInvalidDocument, got %v", err)
			}
		})
	}
}
