package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dshills/docrag-mcp/internal/app"
	"github.com/dshills/docrag-mcp/internal/config"
	"github.com/dshills/docrag-mcp/internal/searcher"
)

func main() {
	configPath := flag.String("config", os.Getenv("DOCRAG_CONFIG"), "path to a YAML configuration file")
	query := flag.String("query", "", "question to run after ingesting")
	generate := flag.Bool("generate", false, "stream an answer to --query from the configured LLM")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [file ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 && *query == "" {
		flag.Usage()
		os.Exit(2)
	}

	log.SetOutput(os.Stderr)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Ignoring .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}
	if *generate {
		cfg.LLM.Enabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	defer a.Close()

	failed := 0
	for _, path := range flag.Args() {
		if err := ingest(ctx, a, path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
		}
	}

	if *query != "" {
		if err := ask(ctx, a, *query, *generate); err != nil {
			fmt.Fprintf(os.Stderr, "query: %v\n", err)
			failed++
		}
	}

	if failed > 0 {
		a.Close()
		os.Exit(1)
	}
}

func ingest(ctx context.Context, a *app.App, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = a.Indexer.IngestFile(ctx, data, path, func(line string) {
		fmt.Println(line)
	})
	return err
}

func ask(ctx context.Context, a *app.App, query string, generate bool) error {
	req := searcher.QueryRequest{Query: query, Generate: generate}
	if generate {
		req.OnFragment = func(text string) { fmt.Print(text) }
	}

	resp, err := a.Searcher.Query(ctx, req)
	if err != nil {
		return err
	}

	if !generate {
		fmt.Println(resp.Context)
		return nil
	}
	if resp.Answer == searcher.InsufficientInformation {
		fmt.Print(resp.Answer)
	}
	fmt.Println()
	return nil
}
