// Package config assembles run settings from layered sources.
//
// # Precedence
//
// Later sources override earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A YAML file passed with --config
//  3. A .env file in the working directory
//  4. Environment variables
//  5. Command-line flags, applied by the caller
//
// Variables from the .env file never override variables already present in
// the environment.
//
// # Environment Variables
//
//	CONSENSUS_WIDTH, CONSENSUS_HEIGHT   grid size (400x400)
//	CONSENSUS_SIGMA                     click kernel bandwidth (25)
//	CONSENSUS_CLICK_THRESHOLD           click threshold (2.0)
//	CONSENSUS_REGION_THRESHOLD          region threshold (0.45)
//	CONSENSUS_MIN_AREA                  minimum region area (100)
//	CONSENSUS_WINDOW                    smoothing window (3)
//	CONSENSUS_TOLERANCE                 simplification tolerance (0.01)
//	CONSENSUS_WORKERS                   parallel workers (4)
//	CONSENSUS_CAMPAIGN                  google or ign
//	CONSENSUS_IMAGE_CACHE               source imagery cache directory
//	CONSENSUS_IMAGE_URL                 source imagery URL pattern
//	CONSENSUS_LOG_LEVEL                 debug, info, warn or error
//	CONSENSUS_DB_DRIVER                 mysql (default), sqlite or postgres
//	CONSENSUS_DB_DSN                    database connection string
//	DB_HOST, DB_PORT, DB_USER,
//	DB_PASS, DB_NAME                    mysql or postgres connection without a DSN
//
// # YAML
//
//	width: 400
//	height: 400
//	clicks:
//	  sigma: 25
//	  threshold: 2.0
//	regions:
//	  threshold: 0.45
//	  min_area: 100
//	  window: 3
//	  tolerance: 0.01
//	database:
//	  driver: sqlite
//	  dsn: annotations.db
package config
