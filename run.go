package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/cli/go-gh/v2/pkg/term"

	"github.com/markis/gh-minigpt/internal/args"
	"github.com/markis/gh-minigpt/internal/client"
	"github.com/markis/gh-minigpt/internal/config"
	"github.com/markis/gh-minigpt/internal/edit"
	"github.com/markis/gh-minigpt/internal/logging"
	"github.com/markis/gh-minigpt/internal/render"
	"github.com/markis/gh-minigpt/internal/stream"
)

// configEnv overrides the config file location.
const configEnv = "MINIGPT_CONFIG"

// target is where the completion goes: the terminal, or a line range of a file.
type target struct {
	doc *edit.Document
	sel edit.Selection
}

func run(ctx context.Context, argv []string) error {
	cfg, err := config.LoadConfig(ctx, os.Getenv(configEnv))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := args.ParseArgs(cfg, argv, args.StdinIfPiped())
	if errors.Is(err, args.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger := logging.New(logging.WithDebug(a.Debug))

	req, tgt, err := buildRequest(cfg, a)
	if err != nil {
		return err
	}
	if req.Instruction == "" && req.Text == "" {
		return errors.New("nothing to send: the instruction and selection are both empty")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var opts []stream.Option
	var progress *render.Progress
	if term.IsTerminal(os.Stderr) {
		width, _, _ := term.FromEnv().Size()
		limit := cfg.Stream.ExcerptLength
		if limit <= 0 {
			limit = stream.DefaultExcerptLength
		}
		progress = render.NewProgress(os.Stderr, req.Model, width, limit)
		opts = append(opts, stream.WithSink(progress))
	}

	out, err := client.New(cfg, logger).Complete(ctx, req, opts...)
	if progress != nil {
		progress.Done()
	}
	if err != nil {
		return err
	}

	switch out.Kind {
	case stream.Failed:
		return fmt.Errorf("completion failed: %w", out.Err)
	case stream.Cancelled:
		logger.Warn("completion cancelled", "policy", cfg.CancelPolicy(), "chars", len(out.Text))
		if tgt.doc != nil {
			// A cancelled edit never touches the file; whatever arrived is printed instead.
			logger.Warn("file left unchanged", "file", a.File)
			if out.Text != "" {
				fmt.Fprintln(os.Stdout, out.Text)
			}
			return nil
		}
	}

	if tgt.doc != nil {
		return apply(logger, tgt, out.Text)
	}
	if out.Text == "" {
		return nil
	}
	renderer := render.NewTerminalRenderer(os.Stdout, a.UsePlainText, cfg.Render.Theme, cfg.Render.Wrap)
	return renderer.Render(out.Text)
}

// buildRequest resolves the model and the selected text for a.
func buildRequest(cfg *config.Config, a args.Arguments) (client.Request, target, error) {
	model, instruction := client.SelectModel(cfg, a.Instruction())
	if a.Model != "" {
		model = a.Model
	}
	req := client.Request{Instruction: instruction, Text: a.Input, Model: model}

	if a.File == "" {
		return req, target{}, nil
	}

	sel, err := edit.ParseSelection(a.Lines)
	if err != nil {
		return client.Request{}, target{}, err
	}
	doc, err := edit.Open(a.File)
	if err != nil {
		return client.Request{}, target{}, fmt.Errorf("failed to open %s: %w", a.File, err)
	}
	if req.Text, err = doc.Text(sel); err != nil {
		return client.Request{}, target{}, err
	}
	return req, target{doc: doc, sel: sel}, nil
}

// apply writes a non-empty completion over the selection.
func apply(logger *log.Logger, tgt target, text string) error {
	if text == "" {
		logger.Warn("empty completion, file left unchanged")
		return nil
	}
	if err := tgt.doc.Replace(tgt.sel, text); err != nil {
		return err
	}
	if err := tgt.doc.Save(); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	logger.Info("replaced lines", "lines", tgt.sel)
	return nil
}
