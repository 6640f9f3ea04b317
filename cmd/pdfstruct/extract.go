package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/parchmint/pdfstruct/internal/app"
)

func newExtractCmd() *cobra.Command {
	var advanced bool

	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract structured text from a PDF file",
		Long: `Extract reads a PDF and prints the reconstructed text.

With --advanced the full pipeline runs: page rasterization, image region
OCR, formula classification and recognition. The result is printed as the
complete JSON document including pages and attachments.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(args[0], advanced)
		},
	}
	cmd.Flags().BoolVar(&advanced, "advanced", false, "run the full pipeline with OCR and formula recognition")
	return cmd
}

func runExtract(path string, advanced bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer application.Close()

	var bar *progressbar.ProgressBar
	if !outputJSON {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("extracting"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()

		spin := time.NewTicker(100 * time.Millisecond)
		defer spin.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-spin.C:
					_ = bar.Add(1)
				}
			}
		}()
	}

	if advanced {
		result, err := application.Service.ExtractAdvanced(ctx, data)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		success("extracted %d pages, %d attachments, %d characters",
			len(result.Pages), len(result.Attachments), result.Length)
		return nil
	}

	result, err := application.Service.ExtractText(ctx, data)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}
	if outputJSON {
		out, merr := json.MarshalIndent(result, "", "  ")
		if merr != nil {
			return merr
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Println(result.Text)
	success("extracted %d characters", result.Length)
	return nil
}

func success(format string, args ...any) {
	if outputJSON {
		return
	}
	color.New(color.FgGreen).Fprintf(os.Stderr, "✓ %s\n", fmt.Sprintf(format, args...))
}
