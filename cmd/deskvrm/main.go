// Command deskvrm shows a VRM avatar in a transparent, always-on-top desktop window and manages the
// model store it loads from.
//
// Usage:
//
//	deskvrm [-config deskvrm.hcl] <command> [flags] [args]
//
// Commands:
//
//	view        open the avatar window (default)
//	serve       expose the model store over HTTP
//	list        print the stored model names
//	import      copy .vrm files into the store
//	thumbnail   render and store a WebP still of a model
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/deskvrm/engine/config"
	"github.com/Carmen-Shannon/deskvrm/engine/telemetry"
)

var errUsage = errors.New("usage")

func main() {
	configFile := flag.String("config", config.DefaultFile, "Path to the HCL configuration file")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		log.Printf("[Telemetry] disabled: %v", err)
	}

	cmd, args := "view", flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "view":
		err = runView(ctx, cfg, args)
	case "serve":
		err = runServe(ctx, cfg, args)
	case "list":
		err = runList(ctx, cfg, args)
	case "import":
		err = runImport(ctx, cfg, args)
	case "thumbnail":
		err = runThumbnail(ctx, cfg, args)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	if shutdown != nil {
		if serr := shutdown(context.Background()); serr != nil {
			log.Printf("[Telemetry] shutdown: %v", serr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-config file] <view|serve|list|import|thumbnail> [flags] [args]\n", os.Args[0])
	flag.PrintDefaults()
}
