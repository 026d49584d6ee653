package mapview

import (
	"sort"
	"strings"

	"crop-dashboard/internal/models"
)

// Region is a named district with a fixed coordinate.
type Region struct {
	Name     string            `json:"name"`
	Position models.Coordinate `json:"position"`
}

// State is the administrative state the region table covers.
const State = "Maharashtra"

var districts = map[string]models.Coordinate{
	"Ahmednagar": {Lat: 19.0948, Lng: 74.7477},
	"Akola":      {Lat: 20.7096, Lng: 77.0085},
	"Amravati":   {Lat: 20.9374, Lng: 77.7796},
	"Aurangabad": {Lat: 19.8762, Lng: 75.3433},
	"Beed":       {Lat: 18.9891, Lng: 75.7601},
	"Bhandara":   {Lat: 21.1667, Lng: 79.65},
	"Buldhana":   {Lat: 20.5293, Lng: 76.1804},
	"Chandrapur": {Lat: 19.9615, Lng: 79.2961},
	"Dhule":      {Lat: 20.9042, Lng: 74.7749},
	"Gadchiroli": {Lat: 20.1926, Lng: 80.0035},
	"Gondia":     {Lat: 21.4602, Lng: 80.192},
	"Hingoli":    {Lat: 19.719, Lng: 77.1474},
	"Jalgaon":    {Lat: 21.0077, Lng: 75.5626},
	"Jalna":      {Lat: 19.841, Lng: 75.8864},
	"Kolhapur":   {Lat: 16.705, Lng: 74.2433},
	"Latur":      {Lat: 18.4088, Lng: 76.5604},
	"Mumbai":     {Lat: 19.076, Lng: 72.8777},
	"Nagpur":     {Lat: 21.1458, Lng: 79.0882},
	"Nanded":     {Lat: 19.1383, Lng: 77.321},
	"Nandurbar":  {Lat: 21.3662, Lng: 74.239},
	"Nashik":     {Lat: 20.0059, Lng: 73.791},
	"Osmanabad":  {Lat: 18.186, Lng: 76.0419},
	"Parbhani":   {Lat: 19.2704, Lng: 76.7601},
	"Pune":       {Lat: 18.5204, Lng: 73.8567},
	"Raigad":     {Lat: 18.5236, Lng: 73.2896},
	"Ratnagiri":  {Lat: 16.9902, Lng: 73.312},
	"Sangli":     {Lat: 16.8544, Lng: 74.5815},
	"Satara":     {Lat: 17.6805, Lng: 74.0183},
	"Sindhudurg": {Lat: 16.1236, Lng: 73.691},
	"Solapur":    {Lat: 17.6599, Lng: 75.9064},
	"Thane":      {Lat: 19.2183, Lng: 72.9781},
	"Wardha":     {Lat: 20.7381, Lng: 78.5967},
	"Washim":     {Lat: 20.1114, Lng: 77.1334},
	"Yavatmal":   {Lat: 20.3893, Lng: 78.1306},
}

// regionList is the table sorted by name, built once.
var regionList = func() []Region {
	out := make([]Region, 0, len(districts))
	for name, pos := range districts {
		out = append(out, Region{Name: name, Position: pos})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}()

// Regions returns every district sorted by name.
func Regions() []Region {
	return append([]Region(nil), regionList...)
}

// RegionNames returns the district names sorted.
func RegionNames() []string {
	names := make([]string, len(regionList))
	for i, r := range regionList {
		names[i] = r.Name
	}
	return names
}

// Lookup finds a district by exact name, then case-insensitively.
func Lookup(name string) (Region, bool) {
	if pos, ok := districts[name]; ok {
		return Region{Name: name, Position: pos}, true
	}
	trimmed := strings.TrimSpace(name)
	for _, r := range regionList {
		if strings.EqualFold(r.Name, trimmed) {
			return r, true
		}
	}
	return Region{}, false
}
