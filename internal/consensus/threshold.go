package consensus

import "errors"

// ErrInvalidOptions is returned when engine options are out of range.
var ErrInvalidOptions = errors.New("invalid consensus options")

// ResolveThreshold converts a configured threshold into an absolute score.
//
// A value of 1 or more is returned unchanged. A smaller value is a fraction
// of annotators and is multiplied by annotators.
func ResolveThreshold(config float64, annotators int) float64 {
	if config >= 1 {
		return config
	}
	return config * float64(annotators)
}
