package models

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Marker struct {
	Position Coordinate `json:"position"`
	Label    string     `json:"label"`
}

// MapViewState is the viewport of the form's map.
type MapViewState struct {
	Center  Coordinate `json:"center"`
	Zoom    int        `json:"zoom"`
	Markers []Marker   `json:"markers"`
	// Transition increases on every selection; renderers fly to Center
	// whenever it changes, even if Center itself did not.
	Transition         uint64  `json:"transition"`
	TransitionDuration float64 `json:"transition_duration"`
}

// Band is one color-coded range of the weather overlay.
type Band struct {
	Label string   `json:"label"`
	Color string   `json:"color"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// WeatherOverlay is the temperature/humidity coloring for the viewport.
type WeatherOverlay struct {
	Center      Coordinate  `json:"center"`
	Temperature Band        `json:"temperature"`
	Humidity    Band        `json:"humidity"`
	Status      FetchStatus `json:"status"`
}
