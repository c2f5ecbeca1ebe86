// Command scan opens the camera, scans one barcode and prints it.
//
// The scan screen is served in the browser (-ui web) or driven from the
// terminal (-ui console). Frames come from OpenCV capture devices or, with
// -replay, from a directory of images.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdp/qrterminal/v3"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-barcode/internal/config"
	"github.com/teslashibe/go-barcode/internal/log"
	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/camera"
	"github.com/teslashibe/go-barcode/pkg/console"
	"github.com/teslashibe/go-barcode/pkg/decode"
	"github.com/teslashibe/go-barcode/pkg/permission"
	"github.com/teslashibe/go-barcode/pkg/scanner"
	"github.com/teslashibe/go-barcode/pkg/web"
)

type options struct {
	ui        string
	addr      string
	backend   string
	replayDir string
	devices   string
	preset    string
	threshold float64
	timeout   time.Duration
	ask       bool
	bell      bool
	echo      bool
	logLevel  string
	params    scanner.Parameters
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(2)
	}
	log.Init(opts.logLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if opts.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	result, err := run(ctx, opts)
	switch {
	case errors.Is(err, scanner.ErrScanningCancelled):
		fmt.Fprintln(os.Stderr, "scan cancelled")
		os.Exit(1)
	case errors.Is(err, scanner.ErrCameraAccessDenied):
		fmt.Fprintln(os.Stderr, "❌ camera access denied")
		os.Exit(1)
	case err != nil:
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}

	fmt.Printf("%s\t%s\n", result.Format, result.Text)
	if opts.echo {
		qrterminal.GenerateHalfBlock(result.Text, qrterminal.L, os.Stdout)
	}
}

func parseFlags() (options, error) {
	opts := options{params: scanner.DefaultParameters()}

	threshold, err := config.Float("SCANNER_THRESHOLD", decode.DefaultThreshold)
	if err != nil {
		return opts, err
	}

	flag.StringVar(&opts.ui, "ui", "web", "Presenter: web or console")
	flag.StringVar(&opts.addr, "addr", config.Addr(), "Web presenter listen address")
	flag.StringVar(&opts.backend, "camera", config.Camera(), "Camera backend: gocv or replay")
	flag.StringVar(&opts.replayDir, "replay", "", "Directory of PNG/JPEG frames for the replay backend")
	flag.StringVar(&opts.devices, "devices", config.Devices(), "Capture devices, e.g. 0:regular:back,2:zoomOut:back")
	flag.StringVar(&opts.preset, "preset", "", "Capture preset: "+fmt.Sprint(camera.PresetNames()))
	flag.Float64Var(&opts.threshold, "threshold", threshold, "Minimum decode confidence")
	flag.DurationVar(&opts.timeout, "timeout", 0, "Cancel the scan after this long (0 = never)")
	flag.BoolVar(&opts.ask, "ask", false, "Ask before using the camera")
	flag.BoolVar(&opts.bell, "bell", true, "Ring the terminal bell on a successful scan")
	flag.BoolVar(&opts.echo, "echo", false, "Render the scanned text as a QR code")
	flag.StringVar(&opts.logLevel, "log-level", config.LogLevel(), "Log level: debug, info, warn, error")

	flag.StringVar(&opts.params.Instructions, "instructions", opts.params.Instructions, "Text shown above the preview")
	flag.StringVar(&opts.params.ButtonText, "button", "", "Manual trigger label; empty scans continuously")
	direction := flag.String("direction", "back", "Camera direction: back or front")
	orientation := flag.String("orientation", "adaptive", "Orientation constraint: adaptive, portrait or landscape")
	hint := flag.String("hint", "", "Expected symbology, e.g. qrCode, ean13, upcA")
	flag.Parse()

	if opts.params.Direction, err = camera.ParseDirection(*direction); err != nil {
		return opts, err
	}
	if opts.params.Orientation, err = camera.ParseOrientationModel(*orientation); err != nil {
		return opts, err
	}
	if *hint != "" {
		h, err := barcode.ParseHint(*hint)
		if err != nil {
			return opts, err
		}
		opts.params = opts.params.WithHint(h)
	}
	if opts.backend == "replay" && opts.replayDir == "" {
		return opts, errors.New("-camera replay needs -replay <dir>")
	}
	if opts.replayDir != "" {
		opts.backend = "replay"
	}
	return opts, nil
}

// run wires the scanner to the chosen presenter and performs one scan.
func run(ctx context.Context, opts options) (barcode.Result, error) {
	camCfg, err := cameraConfig(opts)
	if err != nil {
		return barcode.Result{}, err
	}
	discoverer, checker, err := backend(opts, camCfg)
	if err != nil {
		return barcode.Result{}, err
	}

	screen := camera.NewReportedOrientation(camera.OrientationPortrait, 0, 0)
	scanOpts := []scanner.Option{
		scanner.WithDiscoverer(discoverer),
		scanner.WithCameraConfig(camCfg),
		scanner.WithOrientationSource(screen),
		scanner.WithThreshold(opts.threshold),
	}
	if opts.bell {
		scanOpts = append(scanOpts, scanner.WithFeedback(decode.NewBell(os.Stderr)))
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	var s *scanner.Scanner
	publish := func(barcode.Result, error) {}
	switch opts.ui {
	case "web":
		webCfg := web.DefaultConfig()
		webCfg.Addr = opts.addr
		if errs := webCfg.Validate(); len(errs) > 0 {
			return barcode.Result{}, fmt.Errorf("web config: %v", errs)
		}
		p := web.New(webCfg, screen)
		s = scanner.New(checker, p, scanOpts...)
		s.OnStateChange(p.PublishState)
		publish = p.PublishResult
		g.Go(func() error { return p.Run(gctx) })
		fmt.Fprintf(os.Stderr, "Open http://%s/ to scan\n", displayAddr(opts.addr))
	case "console":
		p := console.New(console.WithOutput(os.Stderr))
		s = scanner.New(checker, p, scanOpts...)
		g.Go(func() error { return p.Run(gctx, os.Stdin) })
	default:
		return barcode.Result{}, fmt.Errorf("unknown -ui %q", opts.ui)
	}

	var result barcode.Result
	g.Go(func() error {
		defer stop()
		r, err := s.Scan(gctx, opts.params)
		publish(r, err)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return barcode.Result{}, err
	}
	return result, nil
}

func cameraConfig(opts options) (camera.Config, error) {
	cfg := camera.DefaultConfig()
	if opts.preset != "" {
		preset := camera.GetPreset(opts.preset)
		if preset == nil {
			return cfg, fmt.Errorf("unknown preset %q", opts.preset)
		}
		cfg = *preset
	}
	if opts.devices != "" {
		specs, err := camera.ParseDeviceSpecs(opts.devices)
		if err != nil {
			return cfg, err
		}
		cfg.Devices = specs
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("camera config: %v", errs)
	}
	return cfg, nil
}

// backend returns the frame source and the matching permission check.
// Replayed frames need no camera access.
func backend(opts options, cfg camera.Config) (camera.Discoverer, permission.Checker, error) {
	switch opts.backend {
	case "replay":
		frames, err := camera.LoadImages(opts.replayDir)
		if err != nil {
			return nil, nil, err
		}
		if len(frames) == 0 {
			return nil, nil, fmt.Errorf("no images in %s", opts.replayDir)
		}
		var devices camera.ReplayDiscoverer
		for _, spec := range cfg.Devices {
			id := fmt.Sprintf("replay%d", spec.Index)
			devices = append(devices, camera.NewReplayDevice(id, spec.Type, spec.Direction, frames, camera.WithTorch()))
		}
		return devices, permission.Static(true), nil
	case "gocv":
		var consent func(context.Context) (bool, error)
		prompter := &permission.TerminalPrompter{Stdout: os.Stderr}
		if opts.ask {
			consent = prompter.ConsentFunc()
		}
		checker := permission.NewBehaviour(permission.NewDeviceAuthorizer(consent), prompter)
		return camera.NewGocvDiscoverer(cfg), checker, nil
	default:
		return nil, nil, fmt.Errorf("unknown camera backend %q", opts.backend)
	}
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
