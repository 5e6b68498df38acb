// Package geo provides straight-line distance math and address lookups.
package geo

import (
	"math"
	"sort"

	"bottlebank/models"
)

const earthRadiusMiles = 3958.8

// DistanceMiles returns the great-circle distance between two coordinates.
func DistanceMiles(a, b models.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// AnnotateDistances fills each job's Distance field relative to origin.
// Jobs without a coordinate get the unknown-distance sentinel.
func AnnotateDistances(jobs []models.Job, origin models.GeoPoint) {
	for i := range jobs {
		if jobs[i].HasLocation() {
			jobs[i].Distance = DistanceMiles(origin, jobs[i].Location)
		} else {
			jobs[i].Distance = models.UnknownDistance
		}
	}
}

// SortByDistance orders jobs nearest first. Jobs with an unknown distance
// sort last. The sort is stable so equal distances keep collection order.
func SortByDistance(jobs []models.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		di, dj := jobs[i].Distance, jobs[j].Distance
		if di == 0 && !jobs[i].HasLocation() {
			di = models.UnknownDistance
		}
		if dj == 0 && !jobs[j].HasLocation() {
			dj = models.UnknownDistance
		}
		return di < dj
	})
}
