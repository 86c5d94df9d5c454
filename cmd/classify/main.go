package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/Brownie44l1/waste-classifier/internal/classifier"
	"github.com/Brownie44l1/waste-classifier/internal/config"
	"github.com/Brownie44l1/waste-classifier/internal/logger"
)

const errNoImagePath = "No image path provided"

type loader func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*classifier.Classifier, func(), error)

type lineReader interface {
	Readline() (string, error)
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	load   loader
	// newReader opens the prompt used by interactive mode.
	newReader func(stderr io.Writer) (lineReader, func(), error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		load:      loadClassifier,
		newReader: newPrompt,
	}
	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func (a *app) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	configPath := fs.String("config", os.Getenv("WASTE_CONFIG"), "path to a YAML config file")
	topK := fs.Int("top-k", 0, "number of predictions to print (default from config)")
	interactive := fs.Bool("i", false, "read image paths from a prompt until EOF")
	fs.Usage = func() {
		fmt.Fprintln(a.stderr, "usage: classify [-config file] [-top-k n] [-i] [--] <image_path>")
		fmt.Fprintln(a.stderr, "Flags go before the path. Use -- when the path starts with '-'.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		a.printError(fmt.Sprintf("%v (use -- before an image path that starts with '-')", err))
		return 1
	}

	if fs.NArg() < 1 && !*interactive {
		a.printError(errNoImagePath)
		return 1
	}
	if *interactive && fs.NArg() > 0 {
		a.printError("Interactive mode reads image paths from the prompt, not the command line")
		return 1
	}
	if fs.NArg() > 1 {
		a.printError(fmt.Sprintf("Unexpected arguments after image path: %s (flags go before the path)",
			strings.Join(fs.Args()[1:], " ")))
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		a.printError(fmt.Sprintf("Invalid configuration: %v", err))
		return 1
	}
	if *topK > 0 {
		cfg.Classify.TopK = *topK
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		a.printError(fmt.Sprintf("Invalid configuration: %v", err))
		return 1
	}
	defer func() { _ = log.Sync() }()

	c, closeModel, err := a.load(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to load model", zap.Error(err))
		if classifier.KindOf(err) == 0 {
			err = &classifier.Error{Kind: classifier.ModelLoad, Err: err}
		}
		a.printError(err.Error())
		return 1
	}
	defer closeModel()

	if *interactive {
		return a.runInteractive(c, log)
	}

	result := c.Classify(fs.Arg(0))
	a.print(result)
	if !result.OK() {
		return 1
	}
	return 0
}

// runInteractive classifies one path per line with the already loaded model.
// Failures are printed and the loop continues.
func (a *app) runInteractive(c *classifier.Classifier, log *zap.Logger) int {
	rl, closeReader, err := a.newReader(a.stderr)
	if err != nil {
		a.printError(fmt.Sprintf("Unable to start prompt: %v", err))
		return 1
	}
	defer closeReader()

	for {
		line, err := rl.Readline()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, readline.ErrInterrupt) {
				log.Warn("Prompt closed", zap.Error(err))
			}
			return 0
		}
		path := strings.TrimSpace(line)
		if path == "" {
			continue
		}
		a.print(c.Classify(path))
	}
}

func newPrompt(stderr io.Writer) (lineReader, func(), error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "image> ",
		Stdout: stderr,
		Stderr: stderr,
	})
	if err != nil {
		return nil, nil, err
	}
	return rl, func() { _ = rl.Close() }, nil
}

func (a *app) print(v any) {
	if err := writeJSON(a.stdout, v); err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
	}
}

func (a *app) printError(msg string) {
	a.print(map[string]string{"error": msg})
}
