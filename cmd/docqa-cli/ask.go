package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/app"
	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/document"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	qauc "github.com/kailas-cloud/docqa/internal/usecase/qa"
)

const snippetRunes = 100

// asker is the part of the QA service the CLI drives.
type asker interface {
	Ingest(ctx context.Context, doc document.Document) (qauc.IngestResult, error)
	Ask(ctx context.Context, id, question string) (answer.Result, error)
}

type askOptions struct {
	file     string
	question string
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Index a PDF and answer questions about it",
		Long: `Extracts, chunks and embeds the PDF once, then answers --question,
or reads questions from stdin until "exit" or "quit".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAsk(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "path to the PDF file")
	cmd.Flags().StringVarP(&opts.question, "question", "q", "", "ask a single question and exit")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runAsk(cmd *cobra.Command, root *rootOptions, opts *askOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(root.env)
	if err != nil {
		return err
	}
	logger, err := logpkg.NewLogger("cli", root.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer application.Close()

	doc, err := readPDF(opts.file, application.Identity)
	if err != nil {
		return err
	}

	logger.Debug("CLI session started", zap.String("file", opts.file))
	return session(ctx, application.QA, doc, opts.question, cmd.InOrStdin(), cmd.OutOrStdout())
}

func readPDF(path string, identity document.IdentityPolicy) (document.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return document.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	if ct := http.DetectContentType(data); ct != document.ContentTypePDF {
		return document.Document{}, fmt.Errorf("%s is not a PDF (detected %s)", path, ct)
	}
	doc, err := document.New(filepath.Base(path), document.ContentTypePDF, data, identity)
	if err != nil {
		return document.Document{}, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

// session ingests doc, then answers question, or every question read from in.
func session(ctx context.Context, svc asker, doc document.Document, question string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, ">>> Creating embeddings from PDF...")
	res, err := svc.Ingest(ctx, doc)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	fmt.Fprintf(out, "PDF loaded (%d segments). You can now ask questions!\n", res.Segments)

	if strings.TrimSpace(question) != "" {
		return askAndPrint(ctx, svc, res.DocumentID, question, out)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYour Question (or 'exit'): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(q) {
		case "exit", "quit":
			return nil
		case "":
			continue
		}

		if err := askAndPrint(ctx, svc, res.DocumentID, q, out); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "\nError: %v\n", err)
		}
	}
}

func askAndPrint(ctx context.Context, svc asker, id, question string, out io.Writer) error {
	res, err := svc.Ask(ctx, id, question)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nAnswer:", res.Text())
	fmt.Fprintln(out, "\nSource Documents:")
	for _, src := range res.Sources() {
		fmt.Fprintln(out, "-", snippet(src.Content))
	}
	return nil
}

func snippet(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > snippetRunes {
		r = r[:snippetRunes]
	}
	return string(r) + "..."
}
