package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	defaultTarget          = "http://localhost:8080"
	defaultRate            = 30
	defaultScenarioWeights = "70,20,10" // post, replay, balance
	defaultAccounts        = "B6BAFC09-6967-ED11-A567-055DFA4A16C9,FA99D033-7067-ED11-96C6-7C5DFA4A16C9,382D323D-7067-ED11-8866-7D5DFA4A16C9"
	requestTimeout         = 5 * time.Second
)

// Config holds the load generator configuration.
type Config struct {
	Target          string
	Rate            int
	ScenarioWeights []int
	Accounts        []string
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	loadGen := NewLoadGenerator(&http.Client{Timeout: requestTimeout}, cfg)

	errChan := make(chan error, 1)
	go func() {
		if err := loadGen.Start(ctx); err != nil {
			errChan <- fmt.Errorf("load generator failed: %w", err)
		}
	}()

	log.Printf("Ledger load generator started")
	log.Printf("Configuration: target=%s rate=%d req/s, scenario_weights=%v, accounts=%d",
		cfg.Target, cfg.Rate, cfg.ScenarioWeights, len(cfg.Accounts))
	log.Printf("Press Ctrl+C to stop...")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errChan:
		log.Printf("Error occurred: %v", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := loadGen.Stop(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Printf("Load generator stopped")
}

func parseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("load-generator", flag.ContinueOnError)

	var (
		target          = fs.String("target", defaultTarget, "Base URL of the ledger server")
		rate            = fs.Int("rate", defaultRate, "Requests per second")
		scenarioWeights = fs.String("scenario-weights", defaultScenarioWeights, "Comma-separated weights for post,replay,balance scenarios")
		accounts        = fs.String("accounts", defaultAccounts, "Comma-separated active account ids to post to")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *rate <= 0 {
		return Config{}, fmt.Errorf("rate must be positive, got %d", *rate)
	}

	weights, err := parseScenarioWeights(*scenarioWeights)
	if err != nil {
		return Config{}, fmt.Errorf("invalid scenario weights '%s': %w", *scenarioWeights, err)
	}

	accountIDs := splitAccounts(*accounts)
	if len(accountIDs) == 0 {
		return Config{}, fmt.Errorf("at least one account id is required")
	}

	return Config{
		Target:          strings.TrimRight(*target, "/"),
		Rate:            *rate,
		ScenarioWeights: weights,
		Accounts:        accountIDs,
	}, nil
}

func parseScenarioWeights(weightsStr string) ([]int, error) {
	parts := strings.Split(weightsStr, ",")
	if len(parts) != scenarioCount {
		return nil, fmt.Errorf("expected %d weights, got %d", scenarioCount, len(parts))
	}

	weights := make([]int, scenarioCount)
	total := 0

	for i, part := range parts {
		weight, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weight '%s': %w", part, err)
		}

		if weight < 0 || weight > 100 {
			return nil, fmt.Errorf("weight %d out of range [0, 100]", weight)
		}

		weights[i] = weight
		total += weight
	}

	if total != 100 {
		return nil, fmt.Errorf("weights must sum to 100, got %d", total)
	}

	return weights, nil
}

func splitAccounts(value string) []string {
	var ids []string

	for _, id := range strings.Split(value, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}
