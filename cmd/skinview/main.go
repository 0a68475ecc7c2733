package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Carmen-Shannon/oxy-skin/config"
	"github.com/Carmen-Shannon/oxy-skin/engine"
	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/window"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a TOML config file")
	dataDir := flag.String("data", "", "Base directory for relative asset paths")
	meshPath := flag.String("mesh", "", "Mesh file (.obj)")
	attachmentPath := flag.String("attachment", "", "Weight table file")
	skeletonPath := flag.String("skeleton", "", "Skeleton/animation file")
	mode := flag.String("mode", "", "Display mode: bind or animate (default: animate)")
	debug := flag.Bool("debug", false, "Dump every marker transform to the log")
	profile := flag.Bool("profile", false, "Log frame rate and memory statistics")
	software := flag.Bool("software", false, "Force the software WebGPU adapter")

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
		Mode:       *mode,
		Debug:      *debug,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating window: %v\n", err)
		os.Exit(1)
	}
	defer win.Close()

	presentMode := renderer.PresentModeUncapped
	if cfg.Window.VSync {
		presentMode = renderer.PresentModeVSync
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Window.MSAA)),
		renderer.WithForceSoftwareRenderer(*software),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating renderer: %v\n", err)
		os.Exit(1)
	}
	defer r.Release()

	ld := loader.NewLoader(loader.BackendTypeOBJ,
		loader.WithRenderer(r),
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
	defer shape.Release()

	e := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithShape(shape),
		engine.WithMode(cfg.Mode),
		engine.WithDebug(cfg.Debug),
		engine.WithAxisLength(cfg.AxisLength),
		engine.WithProfiling(*profile),
	)

	log.Printf("[Engine] %s: B toggles bind/animate, D toggles the debug dump, P pauses, R reframes, Esc quits", shape.Name())
	if err := e.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
