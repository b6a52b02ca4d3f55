package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/deskvrm/engine/assetstore"
	"github.com/Carmen-Shannon/deskvrm/engine/config"
	"github.com/Carmen-Shannon/deskvrm/engine/loader"
	"github.com/Carmen-Shannon/deskvrm/engine/thumbnail"
)

// runServe exposes the configured local store over HTTP until ctx is cancelled.
func runServe(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Store.Addr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if cfg.Store.Kind == assetstore.KindHTTP {
		return fmt.Errorf("serve needs a %s or %s store, not %s", assetstore.KindFile, assetstore.KindSQLite, cfg.Store.Kind)
	}

	store, closeStore, err := assetstore.Open(cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer closeStore()

	srv := assetstore.NewServer(store, assetstore.WithAddr(*addr), assetstore.WithServerVerbose(cfg.Render.Verbose))
	return srv.ListenAndServe(ctx)
}

// runList prints the stored model names, one per line.
func runList(ctx context.Context, cfg config.Config, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: list takes no arguments", errUsage)
	}
	store, closeStore, err := assetstore.Open(cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer closeStore()

	names, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// runImport copies model files into the store under their base names.
func runImport(ctx context.Context, cfg config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: import needs at least one .vrm file", errUsage)
	}
	store, closeStore, err := assetstore.Open(cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer closeStore()

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name := filepath.Base(path)
		if err := store.Write(ctx, name, data); err != nil {
			return err
		}
		fmt.Printf("imported %s (%d bytes)\n", name, len(data))
	}
	return nil
}

// runThumbnail renders a stored model and writes its WebP still next to it.
func runThumbnail(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("thumbnail", flag.ContinueOnError)
	height := fs.Int("height", 256, "Thumbnail height in pixels")
	out := fs.String("out", "", "Also write the WebP to this file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: thumbnail needs one model name", errUsage)
	}
	modelName := fs.Arg(0)

	store, closeStore, err := assetstore.Open(cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer closeStore()

	data, err := store.Read(ctx, modelName)
	if err != nil {
		return err
	}
	avatar, err := loader.NewLoader(loader.BackendTypeGLTF, cfg.LoaderOptions()...).Load(data)
	if err != nil {
		return err
	}

	gen := thumbnail.NewGenerator(thumbnail.WithHeight(*height))
	name, err := gen.Generate(ctx, avatar, store, modelName)
	if err != nil {
		return err
	}
	fmt.Printf("stored %s\n", name)

	if *out != "" {
		img, err := store.Read(ctx, name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, img, 0o644); err != nil {
			return err
		}
	}
	return nil
}
