// Package consensus merges redundant annotations of one image into scored
// consensus items.
//
// Two engines share an immutable raster.Space:
//
//   - ClickEngine turns a scatter of clicks into scored cluster centres
//   - RegionEngine turns overlapping polygons into scored consensus outlines
//
// # Click Consensus
//
// Every click adds a Gaussian bump of unit height to a density field. Where
// clicks overlap the bumps stack, so the field value near a cluster
// approximates the number of clicks voting for it. Local maxima of the field
// are cluster centres; those reaching the resolved threshold are kept, with
// the field value as their score.
//
// # Region Consensus
//
// Every polygon interior adds one vote per covered pixel. The vote field is
// box-smoothed, binarized at the resolved threshold and the outer boundaries
// of the resulting regions are traced. Regions below the minimum area are
// dropped, the rest are simplified with Douglas-Peucker and scored with the
// mean smoothed vote inside the simplified outline.
//
// # Thresholds
//
// Both engines interpret their threshold the same way (see ResolveThreshold):
// values of 1 or more are absolute scores, smaller values are a fraction of
// the annotators involved. Clicks count one annotator per click; polygons
// count distinct actor ids.
//
// # Results
//
// Finding nothing is not an error: engines return a nil result. Malformed
// input fails with an error wrapping model.ErrInvalidAnnotation, local to the
// image being processed. Engines keep no state between calls and are safe
// for concurrent use.
package consensus
