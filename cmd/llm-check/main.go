// Command llm-check verifies connectivity to the configured language model
// and embedding endpoints before deploying the analyzer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/ai"
	"github.com/iai-solution/invoice-analyzer/internal/config"
	"github.com/iai-solution/invoice-analyzer/internal/embedding"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	timeout := flag.Duration("timeout", 30*time.Second, "API call timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	_ = gotenv.Load()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Invoice Analyzer Connectivity Check ===")
	fmt.Println("Configuration:")
	fmt.Printf("  LLM provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  LLM model: %s\n", cfg.LLM.Model)
	fmt.Printf("  Embedding endpoint: %s\n", cfg.Embedding.BaseURL)
	fmt.Printf("  Embedding model: %s (dimension %d)\n", cfg.Embedding.Model, cfg.Embedding.Dimension)
	fmt.Printf("  Timeout: %v\n", *timeout)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Chat completion round-trip
	fmt.Println("Checking language model...")
	client := ai.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     cfg.LLM.Model,
		MaxTokens: 16,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Reply with the single word: ok"},
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Chat completion failed: %v\n", err)
		os.Exit(1)
	}
	if len(resp.Choices) == 0 {
		fmt.Fprintln(os.Stderr, "ERROR: Language model returned no choices")
		os.Exit(1)
	}
	fmt.Printf("✓ Language model reachable (reply: %q)\n\n", resp.Choices[0].Message.Content)

	// Embedding round-trip
	fmt.Println("Checking embedding service...")
	embedder := embedding.NewClient(embedding.Config{
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	}, logger)
	if err := embedder.Probe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Embedding service check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Embedding service reachable (dimension %d)\n\n", embedder.Dimension())

	fmt.Println("All checks passed.")
}
