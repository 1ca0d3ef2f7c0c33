package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/sigfield/pkg/export"
	"github.com/chazu/sigfield/pkg/grid"
	"github.com/chazu/sigfield/pkg/isosurface"
	"github.com/chazu/sigfield/pkg/stream"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "scene file (.sig or .json)")
		outDir    = flag.String("out", "out", "directory for heatmaps, meshes and field dumps")
		serve     = flag.String("serve", "", "serve fields over websocket on this address instead (e.g. :8080)")
		levels    = flag.String("level", "0.5", "comma separated iso-densities for volumetric grids")
		workers   = flag.Int("workers", 0, "sampling workers (0 = one per CPU)")
		cells     = flag.Int("cells", isosurface.DefaultCells, "marching cubes cells along the longest axis")
		res       = flag.Int("res", 0, "resolution of the default planar grid")
	)
	flag.Parse()

	if v := os.Getenv("SIGFIELD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("SIGFIELD_WORKERS: %v", err)
		}
		*workers = n
	}

	if *serve != "" {
		srv := stream.NewServer(grid.NewSampler(*workers))
		if *res > 0 {
			srv.Resolution = *res
		}
		log.Fatal(stream.ListenAndServe(*serve, "/ws", srv))
	}

	if *scenePath == "" {
		fmt.Fprintln(os.Stderr, "usage: sigfield -scene FILE [-out DIR] | -serve ADDR")
		flag.PrintDefaults()
		os.Exit(2)
	}

	lv, err := parseLevels(*levels)
	if err != nil {
		log.Fatalf("-level: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := NewApp(*workers, *cells)
	app.startup(ctx)
	app.Levels = lv
	if *res > 0 {
		app.Resolution = *res
	}

	result := app.EvaluateFile(*scenePath)
	for _, w := range result.Warnings {
		log.Printf("warning: %s", w.Message)
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			if e.Line > 0 {
				log.Printf("error: line %d: %s", e.Line, e.Message)
			} else {
				log.Printf("error: %s", e.Message)
			}
		}
		os.Exit(1)
	}

	if err := writeOutputs(*outDir, result); err != nil {
		log.Fatal(err)
	}
}

func parseLevels(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no levels in %q", s)
	}
	return out, nil
}

// writeOutputs writes one PNG per heatmap, one JSON file per mesh and a
// zstd dump of every sampled field.
func writeOutputs(dir string, result EvalResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, hm := range result.Heatmaps {
		path := filepath.Join(dir, fmt.Sprintf("grid-%d.png", hm.Grid))
		if err := os.WriteFile(path, hm.PNG, 0o644); err != nil {
			return err
		}
		log.Printf("grid %d: %dx%d heatmap, density min %.4g max %.4g mean %.4g -> %s",
			hm.Grid, hm.Width, hm.Height, hm.Stats.Min, hm.Stats.Max, hm.Stats.Mean, path)
	}
	for _, m := range result.Meshes {
		path := filepath.Join(dir, fmt.Sprintf("grid-%d-level-%g.json", m.Grid, m.Level))
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		log.Printf("grid %d: level %g surface, %d triangles -> %s", m.Grid, m.Level, len(m.Indices)/3, path)
	}
	if len(result.Frames) > 0 {
		path := filepath.Join(dir, "fields.sgf.zst")
		if err := export.WriteFile(path, result.Frames...); err != nil {
			return err
		}
		log.Printf("%d fields -> %s", len(result.Frames), path)
	}
	return nil
}
