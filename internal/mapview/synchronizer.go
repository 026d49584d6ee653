package mapview

import (
	"errors"

	"crop-dashboard/internal/models"
)

// Viewport defaults.
const (
	DefaultZoom        = 7
	SelectedZoom       = 10
	TransitionDuration = 1.5
)

// DefaultCenter is the middle of the state.
var DefaultCenter = models.Coordinate{Lat: 19.7515, Lng: 75.7139}

// ErrUnknownRegion is returned when a selection names no known district.
var ErrUnknownRegion = errors.New("unknown region")

// DefaultView is the viewport before any selection.
func DefaultView() models.MapViewState {
	return models.MapViewState{
		Center:             DefaultCenter,
		Zoom:               DefaultZoom,
		Markers:            []models.Marker{},
		TransitionDuration: TransitionDuration,
	}
}

// Select returns the viewport after selecting region. The transition
// counter always advances, so renderers fly to the center even when the
// same region is picked twice. On ErrUnknownRegion prev is returned as is.
func Select(prev models.MapViewState, name string) (models.MapViewState, Region, error) {
	region, ok := Lookup(name)
	if !ok {
		return prev, Region{}, ErrUnknownRegion
	}
	return models.MapViewState{
		Center:             region.Position,
		Zoom:               SelectedZoom,
		Markers:            []models.Marker{{Position: region.Position, Label: region.Name}},
		Transition:         prev.Transition + 1,
		TransitionDuration: TransitionDuration,
	}, region, nil
}

// Synchronizer owns one viewport. It is not safe for concurrent use; the
// owning session serializes access.
type Synchronizer struct {
	state models.MapViewState
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{state: DefaultView()}
}

// Select moves the viewport to the named district.
func (s *Synchronizer) Select(name string) (Region, error) {
	next, region, err := Select(s.state, name)
	if err != nil {
		return Region{}, err
	}
	s.state = next
	return region, nil
}

// State returns a copy of the current viewport.
func (s *Synchronizer) State() models.MapViewState {
	out := s.state
	out.Markers = append([]models.Marker{}, s.state.Markers...)
	return out
}
