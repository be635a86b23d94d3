package models

type Station struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type Line struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// LineStation places a station on a line. Distance is cumulative meters
// from the first station of the line.
type LineStation struct {
	LineID    string
	StationID string
	Position  int
	Distance  int
}

// Edge is stored directed but traversed in both directions.
type Edge struct {
	FromStationID string
	ToStationID   string
	LineID        string
	Distance      int // meters
}

// FarePolicy amounts are in minor currency units (paise).
type FarePolicy struct {
	BaseFare       int64
	PerKmRate      int64
	InterchangeFee int64
}

// Network is a full snapshot of the active dataset as read from a store.
type Network struct {
	Stations     []Station
	Lines        []Line
	LineStations []LineStation
	Edges        []Edge
}
