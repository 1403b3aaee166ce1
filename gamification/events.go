package gamification

import (
	"context"

	"go.uber.org/zap"

	"github.com/cppla/lifetrack/models"
)

// EventType names a completion event emitted by another domain module.
type EventType string

const (
	EventHabitCompleted    EventType = "HABIT_COMPLETED"
	EventRoutineCompleted  EventType = "ROUTINE_COMPLETED"
	EventWorkoutCompleted  EventType = "WORKOUT_COMPLETED"
	EventExerciseCompleted EventType = "EXERCISE_COMPLETED"
)

var eventSources = map[EventType]models.SourceType{
	EventHabitCompleted:    models.SourceHabitCompletion,
	EventRoutineCompleted:  models.SourceRoutineCompletion,
	EventWorkoutCompleted:  models.SourceWorkoutCompletion,
	EventExerciseCompleted: models.SourceExerciseCompletion,
}

var eventDescriptions = map[EventType]string{
	EventHabitCompleted:    "Habit completed",
	EventRoutineCompleted:  "Routine completed",
	EventWorkoutCompleted:  "Workout completed",
	EventExerciseCompleted: "Exercise completed",
}

// DefaultEventPoints is the award per event type unless configured otherwise.
func DefaultEventPoints() map[EventType]int64 {
	return map[EventType]int64{
		EventHabitCompleted:    10,
		EventRoutineCompleted:  20,
		EventWorkoutCompleted:  50,
		EventExerciseCompleted: 5,
	}
}

// DomainEvent is the inbound port for completions in other modules.
// Points overrides the configured award when positive.
type DomainEvent struct {
	Type        EventType      `json:"type"`
	UserID      string         `json:"user_id"`
	UnitID      string         `json:"unit_id"`
	EntityID    string         `json:"entity_id"`
	Description string         `json:"description"`
	Points      int64          `json:"points"`
	Metadata    map[string]any `json:"metadata"`
}

// HandleDomainEvent turns a completion event into a point award.
// Failures are logged and returned; nothing is dropped silently.
func (e *Engine) HandleDomainEvent(ctx context.Context, ev DomainEvent) (AwardResult, error) {
	source, ok := eventSources[ev.Type]
	if !ok {
		return AwardResult{}, validationError("unknown event type %q", ev.Type)
	}
	if ev.Points < 0 {
		return AwardResult{}, validationError("event points must not be negative, got %d", ev.Points)
	}
	points := ev.Points
	if points == 0 {
		points = e.eventPoints[ev.Type]
	}
	description := ev.Description
	if description == "" {
		description = eventDescriptions[ev.Type]
	}

	res, err := e.AwardPoints(ctx, AwardInput{
		UserID:      ev.UserID,
		UnitID:      ev.UnitID,
		Points:      points,
		SourceType:  source,
		SourceID:    ev.EntityID,
		Description: description,
		Metadata:    ev.Metadata,
	})
	if err != nil {
		e.logger.Error("domain event award failed",
			zap.String("event_type", string(ev.Type)),
			zap.String("user_id", ev.UserID),
			zap.String("entity_id", ev.EntityID),
			zap.Error(err),
		)
		return AwardResult{}, err
	}
	return res, nil
}
