// Command viewer opens VRM avatars in a window, plays motion clips on number keys and logs avatar statistics.
//
// Usage:
//
//	viewer [path/to/avatar.vrm]
//
// Further avatars can be dropped onto the window. Configuration is read from OXY_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-vrm/config"
	"github.com/Carmen-Shannon/oxy-vrm/engine"
	"github.com/Carmen-Shannon/oxy-vrm/engine/animator"
	"github.com/Carmen-Shannon/oxy-vrm/engine/avatar"
	"github.com/Carmen-Shannon/oxy-vrm/engine/disposal"
	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vrm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vrm/engine/telemetry"
	"github.com/Carmen-Shannon/oxy-vrm/engine/window"
)

func main() {
	flag.Parse()
	if err := run(flag.Arg(0)); err != nil {
		log.Fatalf("[Viewer] %v", err)
	}
}

func run(initialPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Printf("[Telemetry] shutdown: %v", err)
		}
	}()

	win, err := window.NewWindow(
		window.WithTitle("oxy-vrm"),
		window.WithWidth(cfg.WindowWidth),
		window.WithHeight(cfg.WindowHeight),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	var uploader gpu.Uploader
	if !cfg.HeadlessGPU {
		dev, err := gpu.NewDevice(win.SurfaceDescriptor())
		if err != nil {
			return fmt.Errorf("failed to create GPU device: %w", err)
		}
		defer dev.Release()
		uploader = dev
	}

	scheduler := disposal.NewScheduler(disposal.WithBatchSize(cfg.DisposalBatch))
	controller := animator.NewController(animator.WithClipSource(clipSource(cfg)))

	opts := []avatar.ManagerBuilderOption{
		avatar.WithDisposal(scheduler),
		avatar.WithController(controller),
		avatar.WithDecodeWorkers(cfg.DecodeWorkers),
		avatar.WithShadowBatchSize(cfg.ShadowBatch),
		avatar.WithUploadBatchSize(cfg.UploadBatch),
	}
	if uploader != nil {
		opts = append(opts, avatar.WithUploader(uploader))
	}
	manager := avatar.NewManager(opts...)
	defer manager.Close()

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithTickRate(float64(cfg.TickRate)),
		engine.WithProfiling(cfg.Profiling),
		engine.WithProfiler(profiler.NewProfiler(profiler.WithPendingCounter(scheduler.Pending))),
	)

	v := newViewer(cfg, eng, manager, controller)
	v.wire()

	if initialPath != "" {
		go v.open(initialPath)
	}

	log.Printf("[Viewer] ready: drop a .vrm file, 1 = wave, 2 = idle, 0 = rest, Esc = quit")
	eng.Run()
	log.Printf("[Viewer] window closed")
	return nil
}

// clipSource picks the HTTP source when a base URL is configured, the clip directory otherwise.
func clipSource(cfg config.Config) animator.ClipSource {
	if cfg.ClipBaseURL != "" {
		return animator.NewHTTPClipSource(cfg.ClipBaseURL, cfg.ClipExt)
	}
	return animator.NewFileClipSource(cfg.ClipDir, cfg.ClipExt)
}
