// Package imaging draws consensus renders and manages the source imagery
// they are drawn over.
//
// Renders share the coordinate system of the consensus grid: (0,0) is the
// top-left pixel, X grows rightward and Y downward. Source images of any
// size are resized onto the grid before overlays are drawn.
//
// # Click renders
//
// The density field is shown as a heat map, transparent below 0.1. Input
// clicks are red dots, kept maxima are crosses and the best maximum is
// green. A legend strip names the image, click counts and the resolved
// threshold.
//
// # Surface renders
//
// Three kinds are available, see SurfaceKind: the binary mask, the
// consensus polygons filled by score, or the vote level inside the mask
// with the polygons outlined in red.
//
// # Source imagery
//
// Fetcher downloads images into a per campaign and phase directory and
// ImageCache keeps decoded images in memory. Both are safe for concurrent
// use by the batch workers.
package imaging
