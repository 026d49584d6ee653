package mapview

import (
	"crop-dashboard/internal/models"

	"github.com/golang/geo/s2"
)

const earthRadiusKm = 6371.0088

type bandDef struct {
	label string
	color string
	min   *float64
	max   *float64
}

func bound(v float64) *float64 { return &v }

// Bands are inclusive on the lower bound and exclusive on the upper.
var (
	temperatureBands = []bandDef{
		{"Cool", "#3b82f6", nil, bound(20)},
		{"Mild", "#22c55e", bound(20), bound(25)},
		{"Warm", "#f59e0b", bound(25), bound(30)},
		{"Hot", "#ef4444", bound(30), nil},
	}
	humidityBands = []bandDef{
		{"Dry", "#fde68a", nil, bound(40)},
		{"Comfortable", "#a7f3d0", bound(40), bound(60)},
		{"Humid", "#60a5fa", bound(60), bound(80)},
		{"Very Humid", "#1e3a8a", bound(80), nil},
	}
)

func classify(bands []bandDef, v float64) models.Band {
	for _, b := range bands {
		if b.min != nil && v < *b.min {
			continue
		}
		if b.max != nil && v >= *b.max {
			continue
		}
		return toBand(b)
	}
	// NaN matches nothing; report the lowest band
	return toBand(bands[0])
}

func toBand(b bandDef) models.Band {
	out := models.Band{Label: b.label, Color: b.color}
	if b.min != nil {
		out.Min = bound(*b.min)
	}
	if b.max != nil {
		out.Max = bound(*b.max)
	}
	return out
}

// TemperatureBand classifies a temperature in °C.
func TemperatureBand(celsius float64) models.Band {
	return classify(temperatureBands, celsius)
}

// HumidityBand classifies a relative humidity in percent.
func HumidityBand(percent float64) models.Band {
	return classify(humidityBands, percent)
}

// Overlay colors the viewport center by the observation's readings.
func Overlay(state models.MapViewState, obs models.WeatherObservation) models.WeatherOverlay {
	return models.WeatherOverlay{
		Center:      state.Center,
		Temperature: TemperatureBand(obs.Temperature),
		Humidity:    HumidityBand(obs.Humidity),
		Status:      obs.Status,
	}
}

// NearestRegion returns the district closest to (lat, lng) by great-circle
// distance, and that distance in kilometres.
func NearestRegion(lat, lng float64) (Region, float64) {
	target := s2.LatLngFromDegrees(lat, lng)

	best := regionList[0]
	bestDist := target.Distance(latLng(best))
	for _, r := range regionList[1:] {
		if d := target.Distance(latLng(r)); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best, bestDist.Radians() * earthRadiusKm
}

func latLng(r Region) s2.LatLng {
	return s2.LatLngFromDegrees(r.Position.Lat, r.Position.Lng)
}
