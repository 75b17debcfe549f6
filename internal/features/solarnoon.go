package features

import (
	"math"
	"time"
)

// EquationOfTime returns the apparent-minus-mean solar time correction, in
// minutes, for a day of the year.
func EquationOfTime(dayOfYear int) float64 {
	b := 2 * math.Pi * float64(dayOfYear-81) / 365
	return 7.5*math.Sin(b) - 9.87*math.Sin(2*b) - 1.914*math.Cos(b) + 0.020*math.Cos(2*b)
}

// SolarNoon returns local solar noon as a decimal hour for a reference
// meridian in degrees (positive east).
func SolarNoon(eot, reference float64) float64 {
	return 12 + reference/15 - eot/60
}

// DistanceToSolarNoon is |hour angle| / 180 for the wall-clock time of t,
// where the hour angle is 15 degrees per hour away from solar noon.
func DistanceToSolarNoon(t time.Time, reference float64) float64 {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	noon := SolarNoon(EquationOfTime(t.YearDay()), reference)
	return math.Abs(15*(hour-noon)) / 180
}
