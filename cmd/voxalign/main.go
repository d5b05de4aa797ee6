// Command voxalign synthesizes speech with a neural voice, applies pitch and
// tempo transforms, and optionally produces a word-timed lipsync document via
// an external forced aligner.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxalign/voxalign/internal/config"
	"github.com/voxalign/voxalign/internal/lipsync"
	"github.com/voxalign/voxalign/internal/observe"
	"github.com/voxalign/voxalign/internal/pipeline"
	"github.com/voxalign/voxalign/internal/synth"
	"github.com/voxalign/voxalign/internal/voice"
	"github.com/voxalign/voxalign/pkg/audio/transform"
	"github.com/voxalign/voxalign/pkg/extproc"
	"github.com/voxalign/voxalign/pkg/phoneme"
)

const usage = `voxalign — neural speech synthesis with pitch/tempo transforms and lipsync

Usage:
  voxalign [flags] list [-lang <code>]
  voxalign [flags] export -text <text> -out <file.wav> [-voice <id>] [-pitch <f|preset>] [-tempo <f>] [-fast]
  voxalign [flags] lipsync -text <text> -out <file.wav> [-json <file.json>] [-level low|high] [export flags]

Flags:
  -config <path>   YAML configuration file (default "config.yaml")

Pitch presets: slomo, deep, child, helium.
`

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxalign: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxalign"})
	if err != nil {
		slog.Error("metrics provider init failed", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	serveMetrics(cfg.Metrics.ListenAddr)

	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "list":
		return cmdList(args)
	case "export":
		return cmdExport(ctx, cfg, args, false)
	case "lipsync":
		return cmdExport(ctx, cfg, args, true)
	default:
		fmt.Fprintf(os.Stderr, "voxalign: unknown command %q\n\n", cmd)
		flag.Usage()
		return 2
	}
}

// loadConfig reads the config file, falling back to built-in defaults when the
// default file is absent. An explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && path == "config.yaml" {
		return config.Default(), nil
	}
	return cfg, err
}

// serveMetrics exposes the Prometheus /metrics endpoint when configured.
func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Warn("metrics server stopped", "err", err)
		}
	}()
}

func cmdList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	lang := fs.String("lang", "", "only show voices for this language (e.g. en or en_GB)")
	fs.Parse(args)

	voices := voice.List()
	if *lang != "" {
		voices = voice.ByLanguage(*lang)
	}
	if len(voices) == 0 {
		fmt.Println("no voices match")
		return 0
	}
	fmt.Printf("%-36s %-10s %-8s %s\n", "ID", "LANGUAGE", "QUALITY", "NAME")
	for _, v := range voices {
		fmt.Printf("%-36s %-10s %-8s %s\n", v.ID, v.Language, v.Quality, v.DisplayName)
	}
	return 0
}

// cmdExport handles both the export and lipsync commands; withLipsync selects
// whether alignment runs after the WAV is written.
func cmdExport(ctx context.Context, cfg *config.Config, args []string, withLipsync bool) int {
	name := "export"
	if withLipsync {
		name = "lipsync"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	text := fs.String("text", "", "text to synthesize (required)")
	out := fs.String("out", "", "output WAV file (required)")
	voiceID := fs.String("voice", cfg.DefaultVoice, "voice id (see 'voxalign list')")
	pitchArg := fs.String("pitch", "", "pitch factor or preset (slomo, deep, child, helium)")
	tempoArg := fs.String("tempo", "", "tempo factor (2.0 = double speed)")
	fast := fs.Bool("fast", false, "use the fast preview pitch shift (changes duration)")
	var jsonOut, levelArg string
	if withLipsync {
		fs.StringVar(&jsonOut, "json", "", "lipsync JSON destination (default: next to the WAV)")
		fs.StringVar(&levelArg, "level", cfg.Lipsync.Level, "lipsync fidelity: low or high")
	}
	fs.Parse(args)

	if *text == "" || *out == "" {
		fmt.Fprintf(os.Stderr, "voxalign %s: -text and -out are required\n", name)
		return 2
	}

	req := pipeline.ExportRequest{
		Text:       *text,
		OutputPath: *out,
		FastPitch:  *fast,
	}
	var err error
	if *pitchArg != "" {
		if req.Pitch, err = transform.ParsePitch(*pitchArg); err != nil {
			fmt.Fprintf(os.Stderr, "voxalign: %v\n", err)
			return 2
		}
	}
	if *tempoArg != "" {
		if req.Tempo, err = transform.ParseTempo(*tempoArg); err != nil {
			fmt.Fprintf(os.Stderr, "voxalign: %v\n", err)
			return 2
		}
	}

	v, ok := voice.Find(*voiceID)
	if !ok {
		fmt.Fprintf(os.Stderr, "voxalign: unknown voice %q (see 'voxalign list')\n", *voiceID)
		return 2
	}

	runner := extproc.New(cfg.Tools.Timeout)
	dl := voice.NewDownloader(cfg.ModelsDir, nil)
	modelPath, err := dl.EnsureFiles(ctx, v)
	if err != nil {
		slog.Error("could not fetch voice model", "voice", v.ID, "err", err)
		return 1
	}

	metrics := observe.Default()
	piper := synth.NewPiper(runner, modelPath, synth.WithPiperBinary(cfg.Tools.Synthesizer))
	shifter := transform.NewSoxShifter(runner, transform.WithSoxBinary(cfg.Tools.PitchShift))

	var orch *lipsync.Orchestrator
	var level lipsync.Level
	if withLipsync {
		if level, err = lipsync.ParseLevel(levelArg); err != nil {
			fmt.Fprintf(os.Stderr, "voxalign: %v\n", err)
			return 2
		}
		orch = lipsync.New(runner, buildResolver(cfg, runner),
			lipsync.WithAlignerBinary(cfg.Tools.Aligner),
			lipsync.WithMetrics(metrics),
		)
	}

	p := pipeline.New(piper, shifter, orch, pipeline.WithMetrics(metrics))

	if !withLipsync {
		if err := p.Export(ctx, req); err != nil {
			slog.Error("export failed", "err", err)
			return 1
		}
		return 0
	}

	res, err := p.Lipsync(ctx, pipeline.LipsyncRequest{
		Export:   req,
		JSONPath: jsonOut,
		Level:    level,
	})
	if err != nil {
		slog.Error("lipsync failed", "err", err)
		return 1
	}
	fmt.Println(res.JSONPath)
	return 0
}

// buildResolver assembles the phoneme resolution cascade: dictionary first,
// then the language model when one is configured.
func buildResolver(cfg *config.Config, runner extproc.Runner) *phoneme.Resolver {
	loaderOpts := []phoneme.LoaderOption{}
	if cfg.Dictionary.URL != "" {
		loaderOpts = append(loaderOpts, phoneme.WithSourceURL(cfg.Dictionary.URL))
	}
	loader := phoneme.NewLoader(cfg.Dictionary.Path, loaderOpts...)

	strategies := []phoneme.Strategy{phoneme.NewDictionaryStrategy(loader)}
	if cfg.Lipsync.LLMModel != "" {
		strategies = append(strategies, phoneme.NewLLMStrategy(runner, cfg.Lipsync.LLMModel,
			phoneme.WithOllamaBinary(cfg.Tools.LLMRunner)))
	}
	return phoneme.NewResolver(strategies...)
}
