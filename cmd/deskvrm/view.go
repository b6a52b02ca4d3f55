package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/Carmen-Shannon/deskvrm/engine"
	"github.com/Carmen-Shannon/deskvrm/engine/animator"
	"github.com/Carmen-Shannon/deskvrm/engine/assetstore"
	"github.com/Carmen-Shannon/deskvrm/engine/config"
	"github.com/Carmen-Shannon/deskvrm/engine/loader"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/Carmen-Shannon/deskvrm/engine/renderer"
	"github.com/Carmen-Shannon/deskvrm/engine/tracking"
	"github.com/Carmen-Shannon/deskvrm/engine/window"
)

// runView opens the avatar window and blocks until it closes.
func runView(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	modelName := fs.String("model", cfg.Store.Model, "Model name to show (default: first stored model)")
	clipsDir := fs.String("clips", cfg.Animator.ClipsDir, "Directory of .vrma clips bound to hotkeys 1-9")
	profile := fs.Bool("profile", cfg.Render.Profiling, "Log frame statistics every second")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	store, closeStore, err := assetstore.Open(cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer closeStore()

	win := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithWidth(cfg.Window.Width),
		window.WithHeight(cfg.Window.Height),
		window.WithTransparent(true),
		window.WithFloating(true),
		window.WithDecorated(false),
	)

	data, name, err := readModel(ctx, store, *modelName)
	if err != nil {
		if errors.Is(err, assetstore.ErrNotFound) {
			log.Printf("[Engine] no model available: %v", err)
			return win.Close()
		}
		_ = win.Close()
		return err
	}

	r := renderer.NewRenderer(
		renderer.ParseBackendType(cfg.Render.Backend),
		win,
		renderer.WithPresentMode(renderer.PresentModeVSync),
	)

	ld := loader.NewLoader(loader.BackendTypeGLTF, cfg.LoaderOptions()...)
	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithLoader(ld),
		engine.WithAnimator(animator.NewAnimator(cfg.AnimatorOptions()...)),
		engine.WithPlayOptions(cfg.PlayOptions()),
		engine.WithBaseHeight(cfg.Render.BaseHeight),
		engine.WithWindowDrag(cfg.Window.Drag),
		engine.WithProfiling(*profile),
		engine.WithRenderFrameLimit(cfg.Render.FrameLimit),
		engine.WithVerbose(cfg.Render.Verbose),
	)

	var tracker *tracking.HeadTracker
	if cfg.Window.HeadTracking {
		tracker = tracking.NewHeadTracker(win)
		tracker.Start(ctx)
		defer tracker.Stop()
	}

	eng.OnLoad(func(avatar *model.Avatar, err error) {
		if err != nil {
			log.Printf("[Engine] %s could not be shown: %v", name, err)
			return
		}
		eng.LoadClipDir(*clipsDir)
	})
	eng.OnClip(logClips(eng))
	eng.SetGeometryCallback(func(avatar *model.Avatar) bool {
		if ctx.Err() != nil {
			eng.Dispose()
			return false
		}
		return tracker != nil && tracker.Update(avatar)
	})
	eng.LoadAvatar(data)

	eng.Run()
	return nil
}

// readModel reads the requested model, or the first stored one when name is empty.
func readModel(ctx context.Context, store assetstore.Store, name string) ([]byte, string, error) {
	if name == "" {
		names, err := store.List(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("list models: %w", err)
		}
		if len(names) == 0 {
			return nil, "", fmt.Errorf("%w: the store is empty", assetstore.ErrNotFound)
		}
		name = names[0]
	}
	data, err := store.Read(ctx, name)
	if err != nil {
		return nil, name, err
	}
	return data, name, nil
}

// logClips reports each clip registration and the hotkey layout once a clip lands.
func logClips(eng engine.Engine) engine.ClipCallback {
	return func(name string, err error) {
		if err != nil {
			log.Printf("[Animator] skipped clip %s: %v", name, err)
			return
		}
		names := eng.Clips().ListClipNames()
		log.Printf("[Animator] clips on hotkeys 1-%d: %v", min(len(names), 9), names)
	}
}
