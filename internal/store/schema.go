package store

import (
	"context"
	"fmt"
)

// Migrate creates the annotation tables when they do not exist.
// Safe to call multiple times.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// The subset of the annotation platform tables the export reads.
const schema = `
CREATE TABLE IF NOT EXISTS pv_departement (
    numero TEXT PRIMARY KEY,
    nom TEXT,
    region TEXT
);

CREATE TABLE IF NOT EXISTS pv_installation (
    id_utilisateur INTEGER PRIMARY KEY,
    ville TEXT,
    departement TEXT
);

CREATE TABLE IF NOT EXISTS prd_bdappv_image (
    idImage INTEGER PRIMARY KEY,
    identifiant TEXT NOT NULL,
    idInstallation INTEGER
);

CREATE TABLE IF NOT EXISTS prd_bdappv_bosseur (
    idBosseur INTEGER PRIMARY KEY,
    region TEXT,
    pays TEXT
);

CREATE TABLE IF NOT EXISTS prd_bdappv_bosseurAction (
    idAction INTEGER PRIMARY KEY,
    idImage INTEGER,
    idBosseur INTEGER,
    sourceImg INTEGER NOT NULL,
    dateAction TEXT
);

CREATE TABLE IF NOT EXISTS prd_bdappv_actionPV (
    idActionPV INTEGER PRIMARY KEY,
    coordX INTEGER,
    coordY INTEGER,
    pv BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS prd_bdappv_zoneSurface (
    idSurface INTEGER PRIMARY KEY,
    idActionSurface INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS prd_bdappv_zoneSurfacePoint (
    idSurfacePoint INTEGER PRIMARY KEY,
    idSurface INTEGER NOT NULL,
    coordX INTEGER NOT NULL,
    coordY INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bosseur_action_source ON prd_bdappv_bosseurAction(sourceImg);
CREATE INDEX IF NOT EXISTS idx_surface_point_surface ON prd_bdappv_zoneSurfacePoint(idSurface);
`
