// Command catalogcheck loads a figure catalog once and reports what the
// server would drop or fail to place, without starting the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/katalogpart/katalog-server/internal/catalog"
	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/logger"
)

func main() {
	sqlitePath := flag.String("sqlite", "", "Path to a SQLite catalog export")
	imagesURL := flag.String("images-url", "", "JSON endpoint for figure images")
	hotspotsURL := flag.String("hotspots-url", "", "JSON endpoint for hotspot records")
	partsURL := flag.String("parts-url", "", "JSON endpoint for part info")
	coords := flag.String("coordinate-format", "list", "list or single")
	format := flag.String("format", "markdown", "Report format: markdown or html")
	timeout := flag.Duration("timeout", time.Minute, "Overall load timeout")
	verbose := flag.Bool("v", false, "Log source requests")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := logger.New(logger.Config{Writer: os.Stderr, Level: level, Environment: "development"})

	var src catalog.Source
	switch {
	case *sqlitePath != "":
		s, err := catalog.OpenSQLite(*sqlitePath, log.Logger)
		if err != nil {
			log.Fatal("failed to open export", "path", *sqlitePath, "error", err)
		}
		defer s.Close()
		src = s
	case *imagesURL != "" && *hotspotsURL != "" && *partsURL != "":
		s := catalog.NewHTTPSource(catalog.HTTPOptions{
			ImagesURL:      *imagesURL,
			HotspotsURL:    *hotspotsURL,
			PartsURL:       *partsURL,
			RequestsPerSec: 5,
			Timeout:        *timeout,
		}, log.Logger)
		defer s.Close()
		src = s
	default:
		fmt.Fprintln(os.Stderr, "catalogcheck: pass -sqlite or all of -images-url, -hotspots-url and -parts-url")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	loader := catalog.NewLoader(src, domain.CoordinateFormat(*coords), log.Logger)
	cat, report, err := loader.Load(ctx)
	if err != nil {
		log.Fatal("failed to load catalog", "source", src.Name(), "error", err)
	}

	summary := summarize(src.Name(), cat, report)
	out, err := render(summary, *format)
	if err != nil {
		log.Fatal("failed to render report", "error", err)
	}
	fmt.Println(out)

	if summary.Problems() > 0 {
		os.Exit(1)
	}
}
