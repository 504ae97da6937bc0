package program

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Replace deletes every program owned by the user and inserts the new tree.
// The whole replace runs in one transaction so a failure partway never leaves
// an orphaned partial tree behind.
func (r *Repo) Replace(ctx context.Context, userID uint64, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	constraints, err := json.Marshal(doc.Constraints)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteProgramsForUser(tx, userID); err != nil {
			return err
		}

		p := &TrainingProgram{
			UserID:              userID,
			TrainingCycleLength: doc.TrainingCycleLength,
			Constraints:         string(constraints),
			Notes:               doc.Notes,
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}

		for _, cd := range doc.Cycles {
			cycle := &TrainingCycle{
				ProgramID:    p.ID,
				DayIndex:     cd.DayIndex,
				ExerciseType: cd.ExerciseType,
			}
			if err := tx.Create(cycle).Error; err != nil {
				return err
			}
			for k, sd := range cd.Sets {
				set := &ExerciseSet{
					CycleID:   cycle.ID,
					SetKey:    k,
					FocusArea: sd.FocusArea,
				}
				if err := tx.Create(set).Error; err != nil {
					return err
				}
				for _, ed := range sd.Exercises {
					detail := &ExerciseDetail{
						SetID:       set.ID,
						Name:        ed.Name,
						Sets:        ed.Sets,
						Reps:        ed.Reps,
						Unit:        ed.Unit,
						WeightType:  ed.WeightType,
						WeightValue: ed.WeightValue,
						Rest:        ed.Rest,
					}
					if err := tx.Create(detail).Error; err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func deleteProgramsForUser(tx *gorm.DB, userID uint64) error {
	var programIDs []uint64
	if err := tx.Model(&TrainingProgram{}).
		Where("user_id = ?", userID).
		Pluck("id", &programIDs).Error; err != nil {
		return err
	}
	if len(programIDs) == 0 {
		return nil
	}

	var cycleIDs []uint64
	if err := tx.Model(&TrainingCycle{}).
		Where("program_id IN ?", programIDs).
		Pluck("id", &cycleIDs).Error; err != nil {
		return err
	}
	if len(cycleIDs) > 0 {
		var setIDs []uint64
		if err := tx.Model(&ExerciseSet{}).
			Where("cycle_id IN ?", cycleIDs).
			Pluck("id", &setIDs).Error; err != nil {
			return err
		}
		if len(setIDs) > 0 {
			if err := tx.Where("set_id IN ?", setIDs).Delete(&ExerciseDetail{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("cycle_id IN ?", cycleIDs).Delete(&ExerciseSet{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("program_id IN ?", programIDs).Delete(&TrainingCycle{}).Error; err != nil {
		return err
	}
	return tx.Where("user_id = ?", userID).Delete(&TrainingProgram{}).Error
}

// Latest returns the newest program for the user rebuilt as a Document.
// gorm.ErrRecordNotFound when the user has none.
func (r *Repo) Latest(ctx context.Context, userID uint64) (*Document, error) {
	var p TrainingProgram
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&p).Error; err != nil {
		return nil, err
	}

	var cycles []TrainingCycle
	if err := r.db.WithContext(ctx).
		Where("program_id = ?", p.ID).
		Order("day_index ASC, id ASC").
		Find(&cycles).Error; err != nil {
		return nil, err
	}

	doc := &Document{
		TrainingCycleLength: p.TrainingCycleLength,
		Notes:               p.Notes,
	}
	if p.Constraints != "" {
		if err := json.Unmarshal([]byte(p.Constraints), &doc.Constraints); err != nil {
			return nil, err
		}
	}

	for _, c := range cycles {
		cd := CycleDoc{DayIndex: c.DayIndex, ExerciseType: c.ExerciseType}

		var sets []ExerciseSet
		if err := r.db.WithContext(ctx).
			Where("cycle_id = ?", c.ID).
			Order("set_key ASC, id ASC").
			Find(&sets).Error; err != nil {
			return nil, err
		}
		for _, s := range sets {
			sd := SetDoc{FocusArea: s.FocusArea}

			var details []ExerciseDetail
			if err := r.db.WithContext(ctx).
				Where("set_id = ?", s.ID).
				Order("id ASC").
				Find(&details).Error; err != nil {
				return nil, err
			}
			for _, d := range details {
				sd.Exercises = append(sd.Exercises, ExerciseDoc{
					Name:        d.Name,
					Sets:        d.Sets,
					Reps:        d.Reps,
					Unit:        d.Unit,
					WeightType:  d.WeightType,
					WeightValue: d.WeightValue,
					Rest:        d.Rest,
				})
			}
			cd.Sets = append(cd.Sets, sd)
		}
		doc.Cycles = append(doc.Cycles, cd)
	}
	return doc, nil
}

// Counts reports how many rows exist per level for the user's programs.
func (r *Repo) Counts(ctx context.Context, userID uint64) (programs, cycles, sets, details int64, err error) {
	gdb := r.db.WithContext(ctx)
	if err = gdb.Model(&TrainingProgram{}).Where("user_id = ?", userID).Count(&programs).Error; err != nil {
		return
	}
	var programIDs []uint64
	if err = gdb.Model(&TrainingProgram{}).Where("user_id = ?", userID).Pluck("id", &programIDs).Error; err != nil {
		return
	}
	if len(programIDs) == 0 {
		return
	}
	if err = gdb.Model(&TrainingCycle{}).Where("program_id IN ?", programIDs).Count(&cycles).Error; err != nil {
		return
	}
	var cycleIDs []uint64
	if err = gdb.Model(&TrainingCycle{}).Where("program_id IN ?", programIDs).Pluck("id", &cycleIDs).Error; err != nil {
		return
	}
	if len(cycleIDs) == 0 {
		return
	}
	if err = gdb.Model(&ExerciseSet{}).Where("cycle_id IN ?", cycleIDs).Count(&sets).Error; err != nil {
		return
	}
	var setIDs []uint64
	if err = gdb.Model(&ExerciseSet{}).Where("cycle_id IN ?", cycleIDs).Pluck("id", &setIDs).Error; err != nil {
		return
	}
	if len(setIDs) == 0 {
		return
	}
	err = gdb.Model(&ExerciseDetail{}).Where("set_id IN ?", setIDs).Count(&details).Error
	return
}
