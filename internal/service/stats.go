package service

import (
	"context"
	"fmt"
	"math"
)

const (
	DefaultGoal             = 5000
	DefaultStudentsInvolved = 500
)

// Progress summarizes how far the week is towards its goal.
type Progress struct {
	PeopleReached    int     `json:"peopleReached"`
	Initiatives      int     `json:"initiatives"`
	Goal             int     `json:"goal"`
	StudentsInvolved int     `json:"studentsInvolved"`
	Percent          float64 `json:"percent"`
	// PercentRounded is Percent rounded up, as shown to users.
	PercentRounded int `json:"percentRounded"`
}

type StatsService struct {
	store    initiativeRepository
	goal     int
	students int
}

func NewStatsService(store initiativeRepository, goal, students int) *StatsService {
	if goal <= 0 {
		goal = DefaultGoal
	}
	if students < 0 {
		students = DefaultStudentsInvolved
	}
	return &StatsService{store: store, goal: goal, students: students}
}

// Progress counts every evangelized person across all initiatives.
func (s *StatsService) Progress(ctx context.Context) (*Progress, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list initiatives: %w", err)
	}

	reached := 0
	for _, rec := range list {
		reached += len(rec.Evangelized)
	}
	pct := float64(reached) / float64(s.goal) * 100
	return &Progress{
		PeopleReached:    reached,
		Initiatives:      len(list),
		Goal:             s.goal,
		StudentsInvolved: s.students,
		Percent:          pct,
		PercentRounded:   int(math.Ceil(pct)),
	}, nil
}
