package geo

import (
	"math"
	"sort"
)

// Mean earth radius in miles.
const earthRadiusMiles = 3958.761

// Road-distance estimate coefficients, fitted against sampled driving
// distances in the service area.
const (
	roadErrorIntercept = -0.6546115857280128
	roadErrorSlope     = 0.3232529983374981
)

// GreatCircleMiles is the haversine distance between two points.
func GreatCircleMiles(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

// EstimatedRoadMiles inflates a great-circle distance toward the driving
// distance using the fitted error model.
func EstimatedRoadMiles(a, b Point) float64 {
	dist := GreatCircleMiles(a, b)
	return dist + roadErrorIntercept + roadErrorSlope*dist
}

// Candidate is one geocoded pharmacy location.
type Candidate struct {
	Address string
	Zip     string
	Loc     Point
}

// RankTargets returns the postal codes of the candidates within maxMiles of
// estimated driving distance from home, nearest first, deduplicated.
func RankTargets(home Point, candidates []Candidate, maxMiles float64) []string {
	type scored struct {
		dist float64
		zip  string
	}
	var kept []scored
	for _, c := range candidates {
		dist := GreatCircleMiles(home, c.Loc)
		if EstimatedRoadMiles(home, c.Loc) <= maxMiles {
			kept = append(kept, scored{dist: dist, zip: c.Zip})
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].dist < kept[j].dist })

	var zips []string
	seen := map[string]bool{}
	for _, s := range kept {
		if !seen[s.zip] {
			seen[s.zip] = true
			zips = append(zips, s.zip)
		}
	}
	return zips
}
