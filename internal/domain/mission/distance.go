package mission

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/utils"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

var (
	ErrNoClients         = errors.New("mission has no client stops")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)

type Location struct {
	Name      string  `json:"name,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistanceRequest describes one mission leaving Origin to visit Clients.
type DistanceRequest struct {
	Origin  Location   `json:"origin"`
	Clients []Location `json:"clients"`

	// ExtraClientKm is added once for every client beyond the first.
	ExtraClientKm decimal.Decimal `json:"extra_client_km"`
}

func (r *DistanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if !utils.ValidCoordinate(r.Origin.Latitude, r.Origin.Longitude) {
		errs = append(errs, validator.ValidationError{Field: "origin", Message: "must be a valid coordinate"})
	}
	if len(r.Clients) == 0 {
		errs = append(errs, validator.ValidationError{Field: "clients", Message: "at least one client is required"})
	}
	for i, c := range r.Clients {
		if !utils.ValidCoordinate(c.Latitude, c.Longitude) {
			errs = append(errs, validator.ValidationError{Field: "clients[" + validator.Itoa(i) + "]", Message: "must be a valid coordinate"})
		}
	}
	if r.ExtraClientKm.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "extra_client_km", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type DistanceResult struct {
	// FarthestClient is the index in the request's client list.
	FarthestClient int             `json:"farthest_client"`
	MaxDistanceKm  decimal.Decimal `json:"max_distance_km"`
	ExtraClients   int             `json:"extra_clients"`
	BillableKm     decimal.Decimal `json:"billable_km"`
}

// BillableDistance charges a multi-client mission as the distance to its
// farthest client plus a fixed increment per additional client. Distances are
// in kilometers rounded to two decimals.
func BillableDistance(req DistanceRequest) (DistanceResult, error) {
	if len(req.Clients) == 0 {
		return DistanceResult{}, ErrNoClients
	}
	if !utils.ValidCoordinate(req.Origin.Latitude, req.Origin.Longitude) {
		return DistanceResult{}, fmt.Errorf("origin: %w", ErrInvalidCoordinate)
	}

	farthest, maxMeters := 0, -1.0
	for i, c := range req.Clients {
		if !utils.ValidCoordinate(c.Latitude, c.Longitude) {
			return DistanceResult{}, fmt.Errorf("client %d: %w", i, ErrInvalidCoordinate)
		}
		m := utils.CalculateHaversineDistance(req.Origin.Latitude, req.Origin.Longitude, c.Latitude, c.Longitude)
		if m > maxMeters {
			farthest, maxMeters = i, m
		}
	}

	maxKm := decimal.NewFromFloat(maxMeters).Div(decimal.NewFromInt(1000)).Round(2)
	extra := len(req.Clients) - 1
	billable := maxKm.Add(req.ExtraClientKm.Mul(decimal.NewFromInt(int64(extra)))).Round(2)

	return DistanceResult{
		FarthestClient: farthest,
		MaxDistanceKm:  maxKm,
		ExtraClients:   extra,
		BillableKm:     billable,
	}, nil
}
