// Package model defines the annotation records exchanged between the
// extraction, consensus, rendering and serialization layers.
//
// # Records
//
// Input records describe what annotators produced for one image:
//
//   - Click: a single point marking an object location
//   - Polygon: a closed outline of an object boundary
//   - Action: provenance of one annotation event (who, where, when)
//   - Image: every click and polygon collected for one source image
//
// Output records carry derived consensus items only:
//
//   - ClickResult: scored consensus points
//   - SurfaceResult: scored consensus polygons with their areas
//
// # Serialization
//
// Records serialize to JSON objects whose first key is "@type", naming the
// record variant. Decoding reads that tag and dispatches over the closed set
// of variants in DecodeRecord; unknown tags fail with ErrUnknownType. Nested
// records are typed statically and only verify their tag when one is present.
//
// # Coordinate System
//
// Coordinates are integer pixel positions on the annotation canvas:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward, Y increases downward
//   - Valid positions satisfy 0 <= x < width and 0 <= y < height
//
// # Absent Results
//
// A consensus run that accepts nothing yields a nil result, never a result
// with an empty list. Callers treat the two identically.
package model
