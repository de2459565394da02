// Package main is the mxrag CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/mxrag/internal/cli"
	"github.com/hyperjump/mxrag/internal/config"
	"github.com/hyperjump/mxrag/internal/embedding"
	"github.com/hyperjump/mxrag/internal/llm"
	"github.com/hyperjump/mxrag/internal/models"
	"github.com/hyperjump/mxrag/internal/pipeline"
	"github.com/hyperjump/mxrag/internal/relevance"
	"github.com/hyperjump/mxrag/internal/retrieval"
	"github.com/hyperjump/mxrag/internal/rewrite"
	"github.com/hyperjump/mxrag/internal/server"
	"github.com/hyperjump/mxrag/internal/source"
	"github.com/hyperjump/mxrag/internal/websearch"
	"github.com/hyperjump/mxrag/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/mxrag/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "version", "--version", "-v":
		fmt.Printf("mxrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// components is the wired answer pipeline and the resources it holds.
type components struct {
	Orchestrator *pipeline.Orchestrator
	embedder     embedding.Embedder
	sources      *source.Set
}

// Close releases sources and the embedder.
func (c *components) Close() {
	if c.sources != nil {
		_ = c.sources.Close()
	}
	if c.embedder != nil {
		_ = c.embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	c := &components{embedder: embedder}

	sources, err := source.Open(ctx, cfg.Sources, embedder.Dimensions(), logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("sources: %w", err)
	}
	c.sources = sources

	completer, err := llm.New(cfg.LLM, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("llm: %w", err)
	}
	searcher, err := websearch.New(cfg.WebSearch, websearch.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("web search: %w", err)
	}

	classifier := relevance.NewClassifier(relevance.NewScorer(embedder), cfg.Engine.MinRelevanceOrDefault())
	retriever := retrieval.NewRetriever(sources.Bindings, classifier,
		retrieval.WithLogger(logger),
		retrieval.WithSourceTimeout(cfg.Timeouts.Source),
	)
	c.Orchestrator = pipeline.NewOrchestrator(pipeline.Dependencies{
		Embedder:  embedder,
		Retriever: retriever,
		Rewriter:  rewrite.NewRewriter(completer, rewrite.WithLogger(logger)),
		Searcher:  searcher,
		Generator: completer,
	}, cfg.Engine,
		pipeline.WithLogger(logger),
		pipeline.WithTimeouts(cfg.Timeouts),
		pipeline.WithGeneration(cfg.LLM.MaxTokens, cfg.LLM.TemperatureOrDefault()),
		pipeline.WithWebResults(cfg.WebSearch.NumResults),
	)
	return c, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (pipeline transitions, source failures)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Int("sources", len(cfg.Sources)),
		zap.Bool("hybrid_mode", cfg.Engine.HybridModeEnabled),
	)

	comps, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	srv := server.NewServer(comps.Orchestrator, &cfg.Server, logger, nil)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: mxrag ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  mxrag ask engine fails to start after refuelling
  mxrag ask --aircraft "Cessna 172" --category Engine rough idle at low rpm
  mxrag ask --output json "hydraulic pressure drops during taxi"
  mxrag ask --server http://localhost:5000 nose gear shimmy
`)
}

// buildQuestion joins positional args so quoting is optional.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// askArgsReorder moves flags that appear after the question to the front, since
// flag.Parse stops at the first positional argument.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = run the pipeline in-process)")
	aircraft := fs.String("aircraft", "", "aircraft model tag")
	category := fs.String("category", "", "issue category tag")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(askArgsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tags := models.Tags{AircraftModel: *aircraft, IssueCategory: *category}

	if *serverURL != "" {
		answer, err := askViaHTTP(context.Background(), http.DefaultClient, *serverURL, question, tags)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer comps.Close()

	answer, err := comps.Orchestrator.Answer(ctx, question, tags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

type chatRequest struct {
	Message       string `json:"message"`
	AircraftModel string `json:"aircraftModel,omitempty"`
	IssueCategory string `json:"issueCategory,omitempty"`
}

type chatResponse struct {
	Response       string  `json:"response"`
	ProcessingTime float64 `json:"processingTime"`
	Error          string  `json:"error"`
}

// askViaHTTP sends the question to a running server. Only the answer text and latency
// come back over the wire.
func askViaHTTP(ctx context.Context, client *http.Client, serverURL, question string, tags models.Tags) (*models.Answer, error) {
	body, err := json.Marshal(chatRequest{
		Message:       question,
		AircraftModel: tags.AircraftModel,
		IssueCategory: tags.IssueCategory,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(serverURL, "/")+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &models.Answer{Text: out.Response, LatencySeconds: out.ProcessingTime}, nil
}

func printUsage() {
	fmt.Print(`mxrag - aircraft maintenance question answering

Usage:
  mxrag <command> [flags]

Commands:
  server    Start the HTTP API (POST /api/chat, GET /api/health, GET /metrics)
  ask       Answer one question from the command line
  version   Print version
  help      Show this help

Run "mxrag ask -h" for ask flags.
`)
}
