package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ironsheep/annotation-consensus/internal/batch"
	"github.com/ironsheep/annotation-consensus/internal/config"
	"github.com/ironsheep/annotation-consensus/internal/consensus"
	"github.com/ironsheep/annotation-consensus/internal/imaging"
	"github.com/ironsheep/annotation-consensus/internal/model"
	"github.com/ironsheep/annotation-consensus/internal/raster"
	"github.com/ironsheep/annotation-consensus/internal/server"
	"github.com/ironsheep/annotation-consensus/internal/store"
)

// settings holds the flags shared by every command that loads a config.
type settings struct {
	fs         *flag.FlagSet
	configPath string
	envFile    string
	logLevel   string
	campaign   string
}

func newSettings(name string, stderr io.Writer) *settings {
	s := &settings{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	s.fs.SetOutput(stderr)
	s.fs.StringVar(&s.configPath, "config", "", "YAML config file")
	s.fs.StringVar(&s.envFile, "env-file", config.DefaultEnvFile, "dotenv file, ignored when missing")
	s.fs.StringVar(&s.logLevel, "log-level", "", "debug, info, warn or error")
	s.fs.StringVar(&s.campaign, "campaign", "", "annotation campaign: google or ign")
	return s
}

// load parses args, layers the config sources and applies the flags that
// were set on the command line through apply. Logging is configured on
// stderr at the resulting level.
func (s *settings) load(args []string, stderr io.Writer, apply func(name string, cfg *config.Config)) (config.Config, error) {
	if err := s.fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(s.configPath, s.envFile)
	if err != nil {
		return config.Config{}, err
	}

	s.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = s.logLevel
		case "campaign":
			cfg.Campaign = s.campaign
		default:
			if apply != nil {
				apply(f.Name, &cfg)
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

func runConsensus(ctx context.Context, phase model.Phase, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	name := "clicks"
	if phase == model.PhaseSurface {
		name = "polygons"
	}
	s := newSettings(name, stderr)
	threshold := s.fs.Float64("threshold", 0, "consensus threshold: absolute when >= 1, else a fraction of the annotators")
	sigma := s.fs.Float64("sigma", 0, "click kernel bandwidth in pixels")
	parallel := s.fs.Bool("parallel", false, "process images on several workers")
	workers := s.fs.Int("workers", 0, "number of parallel workers, implies --parallel")
	ids := s.fs.String("ids", "", "comma separated image ids to process, others are skipped")
	outDir := s.fs.String("out", "", "directory for PNG renders, none when empty")
	imageType := s.fs.String("image-type", string(imaging.SurfaceThreshold), "surface render: threshold, polygon or all")
	fetch := s.fs.Bool("fetch", false, "download source imagery to draw renders over")

	cfg, err := s.load(args, stderr, func(flagName string, cfg *config.Config) {
		switch flagName {
		case "threshold":
			if phase == model.PhaseClick {
				cfg.Clicks.Threshold = *threshold
			} else {
				cfg.Regions.Threshold = *threshold
			}
		case "sigma":
			cfg.Clicks.Sigma = *sigma
		case "workers":
			cfg.Workers = *workers
		}
	})
	if err != nil {
		return err
	}

	positional := s.fs.Args()
	if len(positional) < 1 || len(positional) > 2 {
		return fmt.Errorf("%s: expected <in> [out], got %d arguments", name, len(positional))
	}
	in, out := positional[0], "-"
	if len(positional) == 2 {
		out = positional[1]
	}

	kind, err := imaging.ParseSurfaceKind(*imageType)
	if err != nil {
		return err
	}

	images, err := readImages(in, stdin)
	if err != nil {
		return err
	}

	space, err := raster.NewSpace(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}

	var rend *renderStage
	if *outDir != "" {
		renderer, err := imaging.NewRenderer(imaging.DefaultStyle(), nil)
		if err != nil {
			return err
		}
		rend = &renderStage{renderer: renderer, dir: *outDir, kind: kind}
		if *fetch {
			rend.fetcher = imaging.NewFetcher(cfg.ImageCacheDir, cfg.ImageURL, model.Campaign(cfg.Campaign))
		}
	}

	var fn batch.Func
	switch phase {
	case model.PhaseClick:
		engine, err := consensus.NewClickEngine(space, cfg.ClickOptions())
		if err != nil {
			return err
		}
		fn = batch.Clicks(engine)
		if rend != nil {
			fn = rend.clicks(engine)
		}
	default:
		engine, err := consensus.NewRegionEngine(space, cfg.RegionOptions())
		if err != nil {
			return err
		}
		fn = batch.Regions(engine)
		if rend != nil {
			fn = rend.regions(engine)
		}
	}

	runner := batch.Runner{Workers: 1, IDs: parseIDs(*ids)}
	if *parallel || *workers > 0 {
		runner.Workers = cfg.Workers
	}

	outcomes, summary := runner.Run(ctx, images, fn)
	if err := writeRecords(out, stdout, batch.Results(outcomes)); err != nil {
		return err
	}
	fmt.Fprintln(stderr, summary.Render())

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed := batch.Failures(outcomes); len(failed) > 0 {
		return fmt.Errorf("%d of %d images failed, first %s: %w",
			len(failed), summary.Processed(), failed[0].ImageID, failed[0].Err)
	}
	return nil
}

func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	s := newSettings("export", stderr)
	filter := s.fs.Bool("filter", false, "keep only images with at least one click or polygon")
	driver := s.fs.String("driver", "", "database driver: mysql, sqlite or postgres")
	dsn := s.fs.String("dsn", "", "database connection string")

	cfg, err := s.load(args, stderr, func(flagName string, cfg *config.Config) {
		switch flagName {
		case "driver":
			cfg.Database.Driver = *driver
		case "dsn":
			cfg.Database.DSN = *dsn
		}
	})
	if err != nil {
		return err
	}

	positional := s.fs.Args()
	if len(positional) > 1 {
		return fmt.Errorf("export: expected [out], got %d arguments", len(positional))
	}
	out := "-"
	if len(positional) == 1 {
		out = positional[0]
	}

	conn, err := cfg.Database.ConnString()
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, cfg.Database.Driver, conn)
	if err != nil {
		return err
	}
	defer st.Close()

	images, err := st.LoadImages(ctx, model.Campaign(cfg.Campaign), *filter)
	if err != nil {
		return err
	}

	records := make([]model.Record, len(images))
	for i, img := range images {
		records[i] = img
	}
	return writeRecords(out, stdout, records)
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	s := newSettings("serve", stderr)
	cfg, err := s.load(args, stderr, nil)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, Version)
	if err != nil {
		return err
	}
	slog.Debug("mcp server starting", "version", Version, "commit", GitCommit)
	return srv.Run(ctx)
}

// parseIDs splits a comma separated id list. An empty list selects every
// image.
func parseIDs(s string) []model.ID {
	var ids []model.ID
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, model.ID(part))
		}
	}
	return ids
}

func readImages(path string, stdin io.Reader) ([]*model.Image, error) {
	if path == "-" {
		return model.ReadImages(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	return model.ReadImages(f)
}

func writeRecords(path string, stdout io.Writer, records []model.Record) error {
	if path == "-" {
		return model.WriteRecords(stdout, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := model.WriteRecords(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
