package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gompdf/pageflow"
)

func main() {
	var (
		inputFile  string
		outputFile string
		format     string
		cssFile    string
		straddle   bool
		timeout    time.Duration
		verbose    bool
	)

	flag.StringVar(&inputFile, "input", "", "Input document path or URL (.html, .md, .docx, .txt)")
	flag.StringVar(&outputFile, "output", "", "Output file path")
	flag.StringVar(&format, "format", "", "Output format: pdf, html or docx (default from the output extension)")
	flag.StringVar(&cssFile, "css", "", "Extra stylesheet (path or URL) applied to the document")
	flag.BoolVar(&straddle, "split-straddling", false, "Split every paragraph crossing a page boundary")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Maximum time to wait for pagination")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	if inputFile == "" {
		fmt.Println("Error: input file is required")
		flag.Usage()
		os.Exit(1)
	}

	if outputFile == "" {
		ext := filepath.Ext(inputFile)
		outputFile = inputFile[:len(inputFile)-len(ext)] + ".pdf"
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(outputFile)), ".")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []pageflow.Option{
		pageflow.WithLogger(log),
		pageflow.WithSplitStraddling(straddle),
		pageflow.WithSettleTimeout(timeout),
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if cssFile != "" {
		css, err := pageflow.LoadStylesheet(ctx, cssFile)
		if err != nil {
			fmt.Printf("Error reading stylesheet: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, pageflow.WithStylesheet(css))
	}
	if err := convert(ctx, inputFile, outputFile, format, opts); err != nil {
		fmt.Printf("Error converting file: %v\n", err)
		os.Exit(1)
	}

	if verbose {
		fmt.Printf("Successfully converted %s to %s\n", inputFile, outputFile)
	}
}

func convert(ctx context.Context, input, output, format string, opts []pageflow.Option) error {
	if format == "pdf" {
		stats, err := pageflow.ConvertFile(ctx, input, output, opts...)
		if err != nil {
			return err
		}
		fmt.Printf("%d pages\n", stats.Pages)
		return nil
	}

	s, err := pageflow.Open(ctx, input, opts...)
	if err != nil {
		return err
	}
	defer s.Close()
	res, err := s.Settle(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	switch format {
	case "html", "htm":
		err = s.WriteHTML(ctx, f, false)
	case "docx":
		err = s.WriteDOCX(ctx, f)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d pages\n", res.PageCount())
	return f.Close()
}
