package scoring

import (
	"fmt"
	"math"

	t "github.com/evanhutnik/aegis-service/internal/types"
)

const (
	SeverityMin = 0.7
	SeverityMax = 33.5167

	colorSafeMin = 7.0
	colorSafeMax = 8.0
	colorSteep   = 10.0
	colorCenter  = 0.5
	maxHue       = 120.0

	highRiskBelow   = 7.5
	mediumRiskBelow = 8.0
)

// SeverityToSafety maps a predicted severity onto a 0..10 safety score.
func SeverityToSafety(severity float64) float64 {
	scaled := (severity - SeverityMin) / (SeverityMax - SeverityMin)
	return clamp(10*(1-scaled), 0, 10)
}

// SafetyToHue stretches safety in [7, 8] through a sigmoid onto a hue in [0, 120].
func SafetyToHue(safety float64) float64 {
	x := clamp((safety-colorSafeMin)/(colorSafeMax-colorSafeMin), 0, 1)
	return maxHue / (1 + math.Exp(-colorSteep*(x-colorCenter)))
}

func HueColor(hue float64) string {
	return fmt.Sprintf("hsl(%v, 70%%, 50%%)", hue)
}

func Risk(avgSafety float64) t.RiskLevel {
	switch {
	case avgSafety < highRiskBelow:
		return t.RiskHigh
	case avgSafety < mediumRiskBelow:
		return t.RiskMedium
	default:
		return t.RiskLow
	}
}

// Point builds a scored route point. distance is a placeholder derived from
// area ids, not a geographic measurement.
func Point(area, start t.AreaID, severity float64) t.RoutePoint {
	safety := SeverityToSafety(severity)
	hue := SafetyToHue(safety)
	sev := severity
	return t.RoutePoint{
		Area:     area,
		Name:     fmt.Sprintf("Area %d", area),
		Severity: &sev,
		Safety:   safety,
		Hue:      hue,
		Color:    HueColor(hue),
		Distance: math.Abs(float64(area-start)) * 2,
	}
}

// Assess scores a single area for comparisons.
func Assess(area t.AreaID, severity float64) t.AreaAssessment {
	safety := SeverityToSafety(severity)
	return t.AreaAssessment{
		Area:      area,
		Severity:  severity,
		Safety:    safety,
		Color:     HueColor(SafetyToHue(safety)),
		RiskLevel: Risk(safety),
	}
}

// Route aggregates resolved points into a RouteOption. It returns nil when no
// point resolved.
func Route(areas []t.AreaID, points []t.RoutePoint, pref t.Preference) *t.RouteOption {
	if len(points) == 0 || len(areas) == 0 {
		return nil
	}
	var sum float64
	for _, p := range points {
		sum += p.Safety
	}
	avg := sum / float64(len(points))
	return &t.RouteOption{
		ID:            int(areas[0]),
		Name:          pref.RouteName(),
		Preference:    pref,
		Points:        points,
		TotalDistance: points[len(points)-1].Distance,
		AverageSafety: avg,
		RiskLevel:     Risk(avg),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
