package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Facility string

const (
	FacilityParking          Facility = "parking"
	FacilityElevator         Facility = "elevator"
	FacilityEscalator        Facility = "escalator"
	FacilityRestroom         Facility = "restroom"
	FacilityATM              Facility = "atm"
	FacilityWifi             Facility = "wifi"
	FacilityWheelchairAccess Facility = "wheelchair_access"
	FacilityTicketCounter    Facility = "ticket_counter"
)

var knownFacilities = map[Facility]bool{
	FacilityParking:          true,
	FacilityElevator:         true,
	FacilityEscalator:        true,
	FacilityRestroom:         true,
	FacilityATM:              true,
	FacilityWifi:             true,
	FacilityWheelchairAccess: true,
	FacilityTicketCounter:    true,
}

func (f Facility) Valid() bool {
	return knownFacilities[f]
}

// Facilities is stored as a JSON array column.
type Facilities []Facility

// Normalize drops duplicates while keeping the first-seen order.
func (fs Facilities) Normalize() Facilities {
	seen := make(map[Facility]bool, len(fs))
	out := make(Facilities, 0, len(fs))
	for _, f := range fs {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func (fs Facilities) Value() (driver.Value, error) {
	if fs == nil {
		fs = Facilities{}
	}
	return json.Marshal(fs)
}

func (fs *Facilities) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*fs = Facilities{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("facilities: unsupported type %T", src)
	}
	return json.Unmarshal(raw, fs)
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type Station struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Code       string     `json:"code,omitempty"`
	Location   *GeoPoint  `json:"location,omitempty"`
	Address    string     `json:"address,omitempty"`
	Zone       string     `json:"zone,omitempty"`
	Facilities Facilities `json:"facilities"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	// DistanceKm is only set by proximity searches.
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// StationRef is the summary of a station embedded in fares and trips.
type StationRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

func (s *Station) Ref() StationRef {
	return StationRef{ID: s.ID, Name: s.Name, Code: s.Code}
}

type StationFilter struct {
	Search          string
	Zone            string
	IncludeInactive bool
}

type CreateStationRequest struct {
	Name       string     `json:"name" validate:"required,min=2,max=100"`
	Code       string     `json:"code" validate:"omitempty,alphanum,max=10"`
	Location   *GeoPoint  `json:"location"`
	Address    string     `json:"address" validate:"max=255"`
	Zone       string     `json:"zone" validate:"max=50"`
	Facilities Facilities `json:"facilities"`
}

// UpdateStationRequest lists the mutable station fields; nil means unchanged.
type UpdateStationRequest struct {
	Name       *string     `json:"name" validate:"omitempty,min=2,max=100"`
	Code       *string     `json:"code" validate:"omitempty,alphanum,max=10"`
	Location   *GeoPoint   `json:"location"`
	Address    *string     `json:"address" validate:"omitempty,max=255"`
	Zone       *string     `json:"zone" validate:"omitempty,max=50"`
	Facilities *Facilities `json:"facilities"`
	IsActive   *bool       `json:"isActive"`
}
