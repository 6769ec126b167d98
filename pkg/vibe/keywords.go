package vibe

import "strings"

// Class is the feature class of a style layer, derived from its id.
type Class int

const (
	ClassNone Class = iota
	ClassWater
	ClassLand
)

func (c Class) String() string {
	switch c {
	case ClassWater:
		return "water"
	case ClassLand:
		return "land"
	default:
		return "none"
	}
}

var (
	landKeywords = []string{
		"land", "park", "grass", "green", "wood", "forest", "vegetation",
		"farmland", "scrub", "rock", "sand", "earth",
	}
	waterKeywords = []string{
		"water", "lake", "ocean", "sea", "river", "wetland", "stream",
	}
	roadKeywords = []string{
		"road", "highway", "motorway", "trunk", "street", "path", "bridge",
		"tunnel", "rail", "transit", "ferry",
	}
)

// Classify returns the class of a fill layer. Water is checked before land,
// so "landcover_wetland" is water.
func Classify(layerID string) Class {
	id := strings.ToLower(layerID)
	switch {
	case containsAny(id, waterKeywords):
		return ClassWater
	case containsAny(id, landKeywords):
		return ClassLand
	default:
		return ClassNone
	}
}

// IsRoad reports whether a line layer draws part of the transport network.
func IsRoad(layerID string) bool {
	return containsAny(strings.ToLower(layerID), roadKeywords)
}

// IsShield reports whether a symbol layer draws route shields, which keep
// their own colors.
func IsShield(layerID string) bool {
	return strings.Contains(strings.ToLower(layerID), "shield")
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
