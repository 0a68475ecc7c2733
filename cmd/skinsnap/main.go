package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/snapshot"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a TOML config file")
	dataDir := flag.String("data", "", "Base directory for relative asset paths")
	meshPath := flag.String("mesh", "", "Mesh file (.obj)")
	attachmentPath := flag.String("attachment", "", "Weight table file")
	skeletonPath := flag.String("skeleton", "", "Skeleton/animation file")
	outputDir := flag.String("output", "", "Output directory (default: <data>/snapshots)")
	format := flag.String("format", "", "Image format: webp or tga (default: webp)")
	size := flag.Int("size", 0, "Image edge length in pixels (default: 512)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	animated := flag.Bool("animated", false, "Also write all frames as one animated WebP")
	writeConfig := flag.Bool("print-config", false, "Print the resolved config as TOML and exit")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		DataDir:    *dataDir,
		Mesh:       *meshPath,
		Attachment: *attachmentPath,
		Skeleton:   *skeletonPath,
		OutputDir:  *outputDir,
		Format:     *format,
		Size:       *size,
		Workers:    *workers,
	})
	if *animated {
		cfg.Snapshot.Animated = true
	}

	if *writeConfig {
		if err := cfg.Write(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ld := loader.NewLoader(loader.BackendTypeOBJ,
		loader.WithBoneCount(cfg.BoneCount),
		loader.WithPlaybackSpeed(cfg.PlaybackSpeed),
	)
	shape, err := ld.Load(loader.AssetPaths{
		Mesh:       cfg.MeshPath,
		Attachment: cfg.AttachmentPath,
		Skeleton:   cfg.SkeletonPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading assets: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Skin snapshot → %s\n", cfg.Snapshot.Format)
	fmt.Printf("Shape: %s, Frames: %d, Workers: %d\n", shape.Name(), shape.Skeleton().FrameCount(), cfg.Snapshot.Workers)
	fmt.Printf("Output: %s\n", cfg.Snapshot.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()
	results, err := snapshot.Run(cfg, shape)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Count results
	success, failed := 0, 0
	var errors []snapshot.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Rendered: %d/%d\n", success, len(results))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := min(len(errors), 20)
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
		os.Exit(1)
	}
}
