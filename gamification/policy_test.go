package gamification

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	a := Location{Latitude: 0, Longitude: 0}
	b := Location{Latitude: 0, Longitude: 1}
	// One degree of longitude on the equator.
	if d := HaversineMeters(a, b); math.Abs(d-111195) > 5 {
		t.Errorf("distance = %.0f, want about 111195", d)
	}
	if d := HaversineMeters(a, a); d != 0 {
		t.Errorf("distance to self = %f", d)
	}
}

func TestRadiusPolicy(t *testing.T) {
	gym := Location{Latitude: 52.5200, Longitude: 13.4050}
	p := RadiusPolicy{Units: StaticUnits{"gym": gym}, RadiusMeters: 200}
	ctx := context.Background()

	if err := p.CheckLocation(ctx, "u", "gym", &Location{Latitude: 52.5205, Longitude: 13.4052}); err != nil {
		t.Errorf("nearby location rejected: %v", err)
	}
	if err := p.CheckLocation(ctx, "u", "gym", &Location{Latitude: 52.5300, Longitude: 13.4050}); !errors.Is(err, ErrCheckInLocation) {
		t.Errorf("far location: err = %v, want ErrCheckInLocation", err)
	}
	if err := p.CheckLocation(ctx, "u", "gym", nil); !errors.Is(err, ErrCheckInLocation) {
		t.Errorf("missing location: err = %v, want ErrCheckInLocation", err)
	}
	if err := p.CheckLocation(ctx, "u", "home", nil); err != nil {
		t.Errorf("unknown unit restricted: %v", err)
	}
}

func TestEligibilityErrorsAreBusinessRules(t *testing.T) {
	for _, err := range []error{ErrCheckInLocation, ErrCheckInTrainingInProgress} {
		if !errors.Is(err, ErrEligibility) || !errors.Is(err, ErrBusinessRule) {
			t.Errorf("%v does not wrap ErrEligibility and ErrBusinessRule", err)
		}
	}
	if errors.Is(ErrCheckInAlreadyDone, ErrEligibility) {
		t.Error("ErrCheckInAlreadyDone must not be an eligibility error")
	}
}
