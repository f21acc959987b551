package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/annotation-consensus/internal/model"
)

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SurfaceRatio rescales polygon coordinates: the outlining task displayed
// images at 500 px, the analysis grid is 400 px.
const SurfaceRatio = 0.8

var clickSources = map[model.Campaign]int{
	model.CampaignGoogle: 1,
	model.CampaignIGN:    2,
}

var polygonSources = map[model.Campaign]int{
	model.CampaignGoogle: 4,
	model.CampaignIGN:    8,
}

// Store reads annotation records from the annotation platform database.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to a mysql, sqlite or postgres database and checks the
// connection.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverMySQL, DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q (want %q, %q or %q)",
			driver, DriverMySQL, DriverSQLite, DriverPostgres)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", driver, err)
	}
	return &Store{db: db, driver: driver}, nil
}

// New wraps an existing connection opened with driver.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres. MySQL and
// SQLite take queries as written.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const imagesQuery = `
SELECT
    image.idImage,
    image.identifiant,
    install.ville,
    install.id_utilisateur,
    dep.region,
    dep.nom
FROM prd_bdappv_image AS image
LEFT JOIN pv_installation AS install ON image.idInstallation = install.id_utilisateur
LEFT JOIN pv_departement AS dep ON dep.numero = install.departement
ORDER BY image.idImage`

const clicksQuery = `
SELECT
    action.coordX,
    action.coordY,
    action.pv,
    bosseurAction.idImage,
    bosseurAction.dateAction,
    bosseur.idBosseur,
    bosseur.region,
    bosseur.pays
FROM prd_bdappv_actionPV AS action
LEFT JOIN prd_bdappv_bosseurAction AS bosseurAction ON action.idActionPV = bosseurAction.idAction
LEFT JOIN prd_bdappv_bosseur AS bosseur ON bosseurAction.idBosseur = bosseur.idBosseur
WHERE bosseurAction.sourceImg = ?
ORDER BY action.idActionPV`

const polygonsQuery = `
SELECT
    point.coordX,
    point.coordY,
    point.idSurface,
    bosseurAction.idImage,
    bosseurAction.dateAction,
    bosseur.idBosseur,
    bosseur.region,
    bosseur.pays
FROM prd_bdappv_zoneSurfacePoint AS point
LEFT JOIN prd_bdappv_zoneSurface AS surface ON point.idSurface = surface.idSurface
LEFT JOIN prd_bdappv_bosseurAction AS bosseurAction ON surface.idActionSurface = bosseurAction.idAction
LEFT JOIN prd_bdappv_bosseur AS bosseur ON bosseurAction.idBosseur = bosseur.idBosseur
WHERE bosseurAction.sourceImg = ?
ORDER BY point.idSurfacePoint`

// LoadImages reads every image of campaign with its clicks and polygons.
//
// Click answers stating "no installation" are kept as NotPVActions. Polygon
// coordinates are scaled by SurfaceRatio. With filterEmpty, images without
// any click or polygon are left out. Images are ordered by database id.
func (s *Store) LoadImages(ctx context.Context, campaign model.Campaign, filterEmpty bool) ([]*model.Image, error) {
	clickSrc, ok := clickSources[campaign]
	if !ok {
		return nil, fmt.Errorf("unknown campaign %q", campaign)
	}

	images, byKey, err := s.loadImages(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.loadClicks(ctx, clickSrc, byKey); err != nil {
		return nil, err
	}
	if err := s.loadPolygons(ctx, polygonSources[campaign], byKey); err != nil {
		return nil, err
	}

	if !filterEmpty {
		return images, nil
	}
	kept := images[:0]
	for _, img := range images {
		if len(img.Clicks) > 0 || len(img.Polygons) > 0 {
			kept = append(kept, img)
		}
	}
	return kept, nil
}

func (s *Store) loadImages(ctx context.Context) ([]*model.Image, map[string]*model.Image, error) {
	rows, err := s.db.QueryContext(ctx, imagesQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var images []*model.Image
	byKey := make(map[string]*model.Image)
	for rows.Next() {
		var (
			key, ident string
			city       sql.NullString
			installID  sql.NullString
			region     sql.NullString
			department sql.NullString
		)
		if err := rows.Scan(&key, &ident, &city, &installID, &region, &department); err != nil {
			return nil, nil, fmt.Errorf("failed to scan image: %w", err)
		}
		img := &model.Image{
			ID:         model.ID(ident),
			City:       city.String,
			Department: department.String,
			Region:     region.String,
			InstallID:  model.ID(installID.String),
			Clicks:     []model.Click{},
			Polygons:   []model.Polygon{},
		}
		images = append(images, img)
		byKey[key] = img
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read images: %w", err)
	}
	return images, byKey, nil
}

// actionRow holds the provenance columns shared by click and polygon rows.
type actionRow struct {
	imageKey sql.NullString
	date     sql.NullString
	actorID  sql.NullString
	region   sql.NullString
	country  sql.NullString
}

func (a actionRow) action() *model.Action {
	return &model.Action{
		Country: a.country.String,
		Region:  a.region.String,
		Date:    a.date.String,
		ActorID: model.ID(a.actorID.String),
	}
}

// image resolves the row's image, logging rows that cannot be attached.
func (a actionRow) image(byKey map[string]*model.Image, kind string) *model.Image {
	if !a.imageKey.Valid {
		slog.Warn("skipping action without image", "kind", kind, "actor_id", a.actorID.String)
		return nil
	}
	img, ok := byKey[a.imageKey.String]
	if !ok {
		slog.Warn("skipping action for unknown image", "kind", kind, "image_key", a.imageKey.String)
		return nil
	}
	return img
}

func (s *Store) loadClicks(ctx context.Context, source int, byKey map[string]*model.Image) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(clicksQuery), source)
	if err != nil {
		return fmt.Errorf("failed to query clicks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			x, y sql.NullInt64
			isPV bool
			a    actionRow
		)
		if err := rows.Scan(&x, &y, &isPV, &a.imageKey, &a.date, &a.actorID, &a.region, &a.country); err != nil {
			return fmt.Errorf("failed to scan click: %w", err)
		}
		img := a.image(byKey, "click")
		if img == nil {
			continue
		}
		if !isPV {
			img.NotPVActions = append(img.NotPVActions, *a.action())
			continue
		}
		img.Clicks = append(img.Clicks, model.Click{
			X:      int(x.Int64),
			Y:      int(y.Int64),
			Action: a.action(),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read clicks: %w", err)
	}
	return nil
}

func (s *Store) loadPolygons(ctx context.Context, source int, byKey map[string]*model.Image) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(polygonsQuery), source)
	if err != nil {
		return fmt.Errorf("failed to query polygons: %w", err)
	}
	defer rows.Close()

	// Points arrive ordered by point id; polygons keep first-seen order.
	type slot struct {
		img   *model.Image
		index int
	}
	polygons := make(map[int64]slot)

	for rows.Next() {
		var (
			x, y      int64
			polygonID int64
			a         actionRow
		)
		if err := rows.Scan(&x, &y, &polygonID, &a.imageKey, &a.date, &a.actorID, &a.region, &a.country); err != nil {
			return fmt.Errorf("failed to scan polygon point: %w", err)
		}

		sl, ok := polygons[polygonID]
		if !ok {
			if img := a.image(byKey, "polygon"); img != nil {
				img.Polygons = append(img.Polygons, model.Polygon{Action: a.action()})
				sl = slot{img: img, index: len(img.Polygons) - 1}
			}
			polygons[polygonID] = sl
		}
		if sl.img == nil {
			continue
		}

		poly := &sl.img.Polygons[sl.index]
		poly.Points = append(poly.Points, model.Point{
			X: int(float64(x) * SurfaceRatio),
			Y: int(float64(y) * SurfaceRatio),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read polygon points: %w", err)
	}
	return nil
}
