// Package store extracts annotation records from the annotation platform
// database.
//
// The platform keeps one row per annotator action. Click actions carry a
// position and whether the annotator saw an installation at all; outline
// actions own a surface whose points are stored one row each. LoadImages
// joins these with the image table and returns one model.Image per image,
// ready for the consensus engines.
//
// # Drivers
//
// The platform database is MySQL (go-sql-driver/mysql, registered as
// "mysql"). The pure-Go SQLite driver (modernc.org/sqlite, "sqlite") serves
// local extracts and tests, and PostgreSQL (lib/pq, "postgres") mirrors of
// the platform. Queries are written with ? placeholders and rebound to $N
// for postgres.
//
// # Sources
//
// Each campaign stores its click and outline actions under a numeric
// source image kind:
//
//	campaign  clicks  outlines
//	google    1       4
//	ign       2       8
//
// Outline coordinates were captured on a 500 px canvas and are scaled by
// SurfaceRatio onto the 400 px analysis grid.
package store
