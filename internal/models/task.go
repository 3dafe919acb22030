package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	StateCreated   = "created"
	StateAssigned  = "assigned"
	StateDelivered = "delivered"
)

var ErrIllegalTransition = errors.New("illegal state transition")

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

const earthRadiusMeters = 6371000

// DistanceMeters returns the great-circle distance to another
// point, computed with the haversine formula.
func (p Point) DistanceMeters(other Point) float64 {
	latA := p.Lat * math.Pi / 180
	latB := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLon := (other.Lon - p.Lon) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(latA)*math.Cos(latB)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

type Task struct {
	ID        string
	Name      string
	AuthToken string
	Pickup    Point
	Delivery  Point
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransition reports whether a task may move between the two states.
// States only advance forward: created -> assigned -> delivered.
func CanTransition(from, to string) bool {
	switch from {
	case StateCreated:
		return to == StateAssigned
	case StateAssigned:
		return to == StateDelivered
	default:
		return false
	}
}

// Transition validates that moving from one state to another is legal
// and returns the new state. It returns ErrIllegalTransition and the
// unchanged state otherwise. Transition only validates; it never
// touches storage.
func Transition(from, to string) (string, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return to, nil
}
