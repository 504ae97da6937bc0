package program

import "time"

type TrainingProgram struct {
	ID                  uint64    `gorm:"primaryKey;autoIncrement" json:"program_id"`
	UserID              uint64    `gorm:"index;not null" json:"-"`
	TrainingCycleLength int       `gorm:"not null" json:"training_cycle_length"`
	Constraints         string    `gorm:"type:varchar(500);not null" json:"constraints"`
	Notes               string    `gorm:"type:varchar(1000)" json:"notes"`
	CreatedAt           time.Time `json:"created_at"`

	Cycles []TrainingCycle `gorm:"foreignKey:ProgramID" json:"cycles"`
}

func (TrainingProgram) TableName() string { return "training_programs" }

type TrainingCycle struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"cycle_id"`
	ProgramID    uint64 `gorm:"index;not null" json:"-"`
	DayIndex     int    `gorm:"not null" json:"day_index"`
	ExerciseType int    `gorm:"not null" json:"exercise_type"`

	Sets []ExerciseSet `gorm:"foreignKey:CycleID" json:"sets"`
}

func (TrainingCycle) TableName() string { return "training_cycles" }

type ExerciseSet struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"set_id"`
	CycleID   uint64 `gorm:"index;not null" json:"-"`
	SetKey    int    `gorm:"not null" json:"set_key"`
	FocusArea string `gorm:"type:varchar(255);not null" json:"focus_area"`

	Details []ExerciseDetail `gorm:"foreignKey:SetID" json:"details"`
}

func (ExerciseSet) TableName() string { return "exercise_sets" }

type ExerciseDetail struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement" json:"exercise_id"`
	SetID       uint64  `gorm:"index;not null" json:"-"`
	Name        string  `gorm:"type:varchar(255);not null" json:"name"`
	Sets        int     `gorm:"not null" json:"sets"`
	Reps        int     `gorm:"not null" json:"reps"`
	Unit        string  `gorm:"type:varchar(50);not null" json:"unit"`
	WeightType  string  `gorm:"type:varchar(50)" json:"weight_type"`
	WeightValue float64 `json:"weight_value"`
	Rest        int     `gorm:"not null" json:"rest"`
}

func (ExerciseDetail) TableName() string { return "exercise_details" }
