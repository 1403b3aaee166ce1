package gamification

import (
	"context"
	"fmt"
	"math"
)

// Location is a WGS84 coordinate in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationPolicy decides whether a check-in location is acceptable. A
// violation must wrap ErrCheckInLocation; any other error is treated as
// an infrastructure failure.
type LocationPolicy interface {
	CheckLocation(ctx context.Context, userID, unitID string, loc *Location) error
}

// TrainingPolicy rejects check-ins while a training session is running.
// A violation must wrap ErrCheckInTrainingInProgress.
type TrainingPolicy interface {
	CheckTraining(ctx context.Context, userID, unitID string) error
}

// AllowAll accepts every check-in.
type AllowAll struct{}

func (AllowAll) CheckLocation(context.Context, string, string, *Location) error { return nil }
func (AllowAll) CheckTraining(context.Context, string, string) error            { return nil }

type LocationPolicyFunc func(ctx context.Context, userID, unitID string, loc *Location) error

func (f LocationPolicyFunc) CheckLocation(ctx context.Context, userID, unitID string, loc *Location) error {
	return f(ctx, userID, unitID, loc)
}

type TrainingPolicyFunc func(ctx context.Context, userID, unitID string) error

func (f TrainingPolicyFunc) CheckTraining(ctx context.Context, userID, unitID string) error {
	return f(ctx, userID, unitID)
}

// UnitLocator returns the coordinates of a unit.
type UnitLocator interface {
	UnitLocation(ctx context.Context, unitID string) (Location, bool, error)
}

// StaticUnits is a UnitLocator backed by a fixed map.
type StaticUnits map[string]Location

func (s StaticUnits) UnitLocation(_ context.Context, unitID string) (Location, bool, error) {
	loc, ok := s[unitID]
	return loc, ok, nil
}

const (
	DefaultCheckInRadiusMeters = 200
	earthRadiusMeters          = 6371000.0
)

// RadiusPolicy rejects check-ins farther than RadiusMeters from the unit.
// Units the locator does not know are not restricted.
type RadiusPolicy struct {
	Units        UnitLocator
	RadiusMeters float64
}

func (p RadiusPolicy) CheckLocation(ctx context.Context, _ string, unitID string, loc *Location) error {
	target, ok, err := p.Units.UnitLocation(ctx, unitID)
	if err != nil {
		return fmt.Errorf("locate unit %s: %w", unitID, err)
	}
	if !ok {
		return nil
	}
	if loc == nil {
		return fmt.Errorf("%w: location is required for unit %s", ErrCheckInLocation, unitID)
	}
	radius := p.RadiusMeters
	if radius <= 0 {
		radius = DefaultCheckInRadiusMeters
	}
	if d := HaversineMeters(*loc, target); d > radius {
		return fmt.Errorf("%w: %.0fm from unit, limit %.0fm", ErrCheckInLocation, d, radius)
	}
	return nil
}

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
