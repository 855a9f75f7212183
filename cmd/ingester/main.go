package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/parallaxdata/transcript-ingester/internal/gcp"
	"github.com/parallaxdata/transcript-ingester/internal/services"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "ingester",
		Usage: "Ingest paired transcript artifacts from the data lake and emit audit manifests",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "prefix",
				Aliases: []string{"p"},
				Usage:   "Key prefix to scan for transcript pairs",
				Value:   "uploads/",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Action: runIngest,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Ingestion failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level: %s", c.String("log-level"))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func runIngest(c *cli.Context) error {
	ctx := c.Context

	bucket := gcp.GetEnv("BUCKET", "")
	if bucket == "" {
		return fmt.Errorf("BUCKET environment variable must be set")
	}

	st, err := gcp.NewGCSStore(ctx, bucket)
	if err != nil {
		return err
	}
	defer st.Close()

	// The Firestore run ledger is optional: without a project ID the
	// pipeline runs with no recorder.
	var recorder services.RunRecorder
	if projectID := gcp.GetEnv("GCP_PROJECT", ""); projectID != "" {
		client, err := gcp.NewFirestoreClient(ctx, projectID)
		if err != nil {
			return err
		}
		defer client.Close()
		recorder = gcp.NewFirestoreRunRecorder(client, gcp.GetEnv("FIRESTORE_COLLECTION", "ingest_runs"))
	}

	logger := slog.Default()
	discovery := services.NewDiscovery(st, logger)
	curator := services.NewCurator(st, services.CuratorConfig{}, logger)
	manifests := services.NewManifestWriter(st, services.ManifestConfig{}, logger)

	pipeline, err := services.NewPipeline(st, discovery, curator, manifests, recorder, services.PipelineConfig{}, logger)
	if err != nil {
		return err
	}

	summary, err := pipeline.Run(ctx, c.String("prefix"))
	if err != nil {
		return err
	}

	logger.Info("Run summary.",
		"state", summary.State,
		"pairsDiscovered", summary.PairsDiscovered,
		"pairsProcessed", summary.PairsProcessed,
		"entriesWritten", summary.EntriesWritten,
		"manifestWritten", summary.ManifestWritten,
	)
	return nil
}
