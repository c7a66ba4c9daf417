package types

import (
	"fmt"
	"time"
)

type AreaID int

type Preference string

const (
	Shortest     Preference = "shortest"
	Alternative1 Preference = "alternative1"
	Alternative2 Preference = "alternative2"
)

// Preferences is the fixed order in which candidate routes are generated.
var Preferences = []Preference{Shortest, Alternative1, Alternative2}

func (p Preference) RouteName() string {
	switch p {
	case Alternative1:
		return "Safe Route"
	case Alternative2:
		return "Alternative Route"
	default:
		return "Direct Route"
	}
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type TimeContext struct {
	Month int `json:"month"`
	Hour  int `json:"hour"`
	Year  int `json:"year"`
}

type SeverityKey struct {
	Area  AreaID
	Month int
	Hour  int
	Year  int
}

func (k SeverityKey) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", k.Area, k.Month, k.Hour, k.Year)
}

func KeyFor(area AreaID, tc TimeContext) SeverityKey {
	return SeverityKey{Area: area, Month: tc.Month, Hour: tc.Hour, Year: tc.Year}
}

type RoutePoint struct {
	Area     AreaID   `json:"areaNumber"`
	Name     string   `json:"name"`
	Severity *float64 `json:"severity"`
	Safety   float64  `json:"safety"`
	Hue      float64  `json:"hue"`
	Color    string   `json:"color"`
	Distance float64  `json:"distance"`
}

type RouteOption struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Preference    Preference   `json:"preference"`
	Points        []RoutePoint `json:"points"`
	TotalDistance float64      `json:"totalDistance"`
	AverageSafety float64      `json:"avgSafety"`
	RiskLevel     RiskLevel    `json:"riskLevel"`
}

// Areas returns the area sequence of the route, in order.
func (r RouteOption) Areas() []AreaID {
	areas := make([]AreaID, 0, len(r.Points))
	for _, p := range r.Points {
		areas = append(areas, p.Area)
	}
	return areas
}

type AreaAssessment struct {
	Area      AreaID    `json:"areaNumber"`
	Severity  float64   `json:"severity"`
	Safety    float64   `json:"safety"`
	Color     string    `json:"color"`
	RiskLevel RiskLevel `json:"riskLevel"`
}

type Comparison struct {
	Context TimeContext    `json:"context"`
	A       AreaAssessment `json:"a"`
	B       AreaAssessment `json:"b"`
	Safer   AreaID         `json:"safer"`
}

type TrendPoint struct {
	Month    int     `json:"month,omitempty"`
	Hour     int     `json:"hour"`
	Year     int     `json:"year,omitempty"`
	Severity float64 `json:"severity"`
	Safety   float64 `json:"safety"`
}

type Trends struct {
	Area    AreaID       `json:"areaNumber"`
	Year    int          `json:"year"`
	Monthly []TrendPoint `json:"monthly"`
	Hourly  []TrendPoint `json:"hourly"`
	Yearly  []TrendPoint `json:"yearly"`
}

type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
