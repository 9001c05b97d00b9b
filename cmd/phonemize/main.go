package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/chaz8081/phonemize/internal/backend"
	"github.com/chaz8081/phonemize/internal/config"
	"github.com/chaz8081/phonemize/internal/phonemize"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/phonemize/config.yaml)")
	initConfig := flag.Bool("init-config", false, "write a default config file and exit")
	backendName := flag.String("backend", "", "backend: espeak, festival, goruut, or mapping")
	language := flag.String("language", "", "language code passed to the backend (e.g. en-us)")
	output := flag.String("o", "", "output file (default: stdout)")
	wordSep := flag.String("w", "", "word separator")
	syllSep := flag.String("s", "", "syllable separator")
	phoneSep := flag.String("p", "", "phone separator")
	strip := flag.Bool("strip", false, "trim the trailing word separator from each line")
	njobs := flag.Int("j", 0, "number of parallel workers")
	preserve := flag.Bool("preserve-punctuation", false, "restore punctuation in the output")
	marks := flag.String("punctuation-marks", "", "punctuation marks to handle")
	noEmpty := flag.Bool("no-empty-lines", false, "drop empty input lines from the output")
	timeout := flag.Duration("timeout", 0, "abort the whole batch after this duration (0: no limit)")
	verbose := flag.Bool("v", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print the backend version and exit")
	listVoices := flag.Bool("voices", false, "list the espeak voices and exit")
	flag.Usage = usage
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		fmt.Println("Wrote", path)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Flags override the config file, but only when actually given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backendName
		case "language":
			cfg.Language = *language
		case "w":
			cfg.Separator.Word = *wordSep
		case "s":
			cfg.Separator.Syllable = *syllSep
		case "p":
			cfg.Separator.Phone = *phoneSep
		case "strip":
			cfg.Strip = *strip
		case "j":
			cfg.NJobs = *njobs
		case "preserve-punctuation":
			cfg.Punctuation.Preserve = *preserve
		case "punctuation-marks":
			cfg.Punctuation.Marks = *marks
		case "no-empty-lines":
			cfg.EmptyLines = !*noEmpty
		case "timeout":
			cfg.Timeout = config.Duration(*timeout)
		}
	})
	if *verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		log.Printf("config validation: %v", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)

	factory, err := backend.New(cfg)
	if err != nil {
		log.Printf("backend: %v", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("%s %s\n", factory.Name(), factory.Version())
		return
	}

	if *listVoices {
		ef, ok := factory.(*backend.EspeakFactory)
		if !ok {
			log.Printf("-voices is only supported by the espeak backend")
			os.Exit(1)
		}
		voices, err := ef.Voices()
		if err != nil {
			log.Fatalf("%v", err)
		}
		codes := make([]string, 0, len(voices))
		for code := range voices {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Printf("%-12s %s\n", code, voices[code])
		}
		return
	}

	p, err := phonemize.New(factory, phonemize.FromConfig(cfg)...)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	lines, err := readLines(flag.Arg(0))
	if err != nil {
		log.Fatalf("reading input: %v", err)
	}

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	out, err := p.Phonemize(ctx, lines)
	if err != nil {
		var cfgErr *phonemize.ConfigError
		if errors.As(err, &cfgErr) {
			log.Printf("%v", err)
			os.Exit(1)
		}
		log.Printf("%v", err)
		os.Exit(2)
	}
	slog.Debug("batch done", "lines", len(out), "elapsed", time.Since(start).Round(time.Millisecond))

	if err := writeLines(*output, out); err != nil {
		log.Fatalf("writing output: %v", err)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"Usage: %s [flags] [file]\n\nTranscribes text to phonemes, one line at a time. Reads from file or\nstdin, writes to stdout or -o.\n\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// readLines reads the input text, one entry per line, from the named
// file or from stdin when path is empty or "-".
func readLines(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// writeLines writes the transcribed lines to the named file or stdout.
func writeLines(path string, lines []string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
