// Package main implements a load generator for the ledger server. It posts movements, replays
// earlier requests to exercise idempotency, and reads balances at a configurable rate.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

const (
	scenarioPost    = "post"
	scenarioReplay  = "replay"
	scenarioBalance = "balance"
	scenarioCount   = 3

	recentRequestsCapacity = 256
	operationTimeout       = 5 * time.Second
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	// ErrUnexpectedStatus is returned when the server answers with a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrReplayMismatch is returned when a replayed request yields a different movement id.
	ErrReplayMismatch = errors.New("replay returned a different movement id")
)

type postMovementRequest struct {
	RequestID string `json:"requestId"`
	Amount    string `json:"amount"`
	Direction string `json:"direction"`
}

type postMovementResponse struct {
	MovementID string `json:"movementId"`
}

type errorResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type sentRequest struct {
	accountID  string
	request    postMovementRequest
	movementID string
}

// LoadGenerator drives the ledger HTTP API with a steady request rate.
type LoadGenerator struct {
	client *http.Client
	config Config

	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu             sync.RWMutex
	requestCount   int64
	errorCount     int64
	replayCount    int64
	startTime      time.Time
	recentRequests []sentRequest
}

// NewLoadGenerator creates a new LoadGenerator sending requests with the given client.
func NewLoadGenerator(client *http.Client, config Config) *LoadGenerator {
	return &LoadGenerator{
		client:   client,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Start begins load generation with the configured request rate.
// It runs until the context is cancelled or Stop() is called.
func (lg *LoadGenerator) Start(ctx context.Context) error {
	lg.mu.Lock()
	lg.startTime = time.Now()
	lg.requestCount = 0
	lg.errorCount = 0
	lg.replayCount = 0
	lg.mu.Unlock()

	interval := time.Second / time.Duration(lg.config.Rate)
	lg.ticker = time.NewTicker(interval)
	defer lg.ticker.Stop()

	log.Printf("Load generator starting with %d requests/second (interval: %v), initial goroutines: %d",
		lg.config.Rate, interval, runtime.NumGoroutine())

	lg.wg.Add(1)
	go lg.statsReporter(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Load generator stopping due to context cancellation")
			return nil

		case <-lg.stopChan:
			log.Printf("Load generator stopping due to stop signal")
			return nil

		case <-lg.ticker.C:
			lg.wg.Add(1)
			go lg.executeScenario(ctx)
		}
	}
}

// Stop waits for in-flight scenarios and logs the final statistics.
func (lg *LoadGenerator) Stop(ctx context.Context) error {
	lg.stopOnce.Do(func() { close(lg.stopChan) })

	done := make(chan struct{})
	go func() {
		lg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lg.logStats("Final Stats")
		return nil
	case <-ctx.Done():
		lg.logStats("Final Stats")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func (lg *LoadGenerator) executeScenario(ctx context.Context) {
	defer lg.wg.Done()

	opCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	scenario := lg.selectScenario(rand.Intn(100)) //nolint:gosec // load generation, weak random is fine

	err := lg.runScenario(opCtx, scenario)

	lg.mu.Lock()
	lg.requestCount++
	if err != nil {
		lg.errorCount++
		log.Printf("Scenario error (%s): %v", scenario, err)
	}
	lg.mu.Unlock()
}

// selectScenario maps a number in [0, 100) onto the configured weights [post, replay, balance].
func (lg *LoadGenerator) selectScenario(r int) string {
	switch {
	case r < lg.config.ScenarioWeights[0]:
		return scenarioPost
	case r < lg.config.ScenarioWeights[0]+lg.config.ScenarioWeights[1]:
		return scenarioReplay
	default:
		return scenarioBalance
	}
}

func (lg *LoadGenerator) runScenario(ctx context.Context, scenario string) error {
	switch scenario {
	case scenarioPost:
		return lg.runPostScenario(ctx)
	case scenarioReplay:
		return lg.runReplayScenario(ctx)
	case scenarioBalance:
		_, err := lg.readBalance(ctx, lg.randomAccount())
		return err
	default:
		return fmt.Errorf("unknown scenario type: %s", scenario)
	}
}

func (lg *LoadGenerator) runPostScenario(ctx context.Context) error {
	accountID := lg.randomAccount()
	request := postMovementRequest{
		RequestID: uuid.NewString(),
		Amount:    randomAmount().StringFixed(2),
		Direction: randomDirection(),
	}

	movementID, _, err := lg.postMovement(ctx, accountID, request)
	if err != nil {
		return err
	}

	lg.remember(sentRequest{accountID: accountID, request: request, movementID: movementID})

	return nil
}

func (lg *LoadGenerator) runReplayScenario(ctx context.Context) error {
	previous, ok := lg.randomRecentRequest()
	if !ok {
		return lg.runPostScenario(ctx)
	}

	movementID, replayed, err := lg.postMovement(ctx, previous.accountID, previous.request)
	if err != nil {
		return err
	}

	if movementID != previous.movementID || !replayed {
		return fmt.Errorf("%w: request %s expected %s got %s (replayed=%t)",
			ErrReplayMismatch, previous.request.RequestID, previous.movementID, movementID, replayed)
	}

	lg.mu.Lock()
	lg.replayCount++
	lg.mu.Unlock()

	return nil
}

func (lg *LoadGenerator) postMovement(
	ctx context.Context,
	accountID string,
	request postMovementRequest,
) (string, bool, error) {

	body, err := json.Marshal(request)
	if err != nil {
		return "", false, err
	}

	url := fmt.Sprintf("%s/conta/%s/movimentar", lg.config.Target, accountID)

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}

	httpRequest.Header.Set("Content-Type", "application/json")

	var response postMovementResponse

	header, err := lg.do(httpRequest, &response)
	if err != nil {
		return "", false, err
	}

	return response.MovementID, header.Get("Idempotent-Replayed") == "true", nil
}

func (lg *LoadGenerator) readBalance(ctx context.Context, accountID string) (string, error) {
	url := fmt.Sprintf("%s/conta/%s/saldo", lg.config.Target, accountID)

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	var response struct {
		Balance string `json:"balance"`
	}

	if _, err = lg.do(httpRequest, &response); err != nil {
		return "", err
	}

	return response.Balance, nil
}

func (lg *LoadGenerator) do(request *http.Request, target any) (http.Header, error) {
	response, err := lg.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer func() { _ = response.Body.Close() }()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		var failure errorResponse
		_ = json.Unmarshal(payload, &failure) // the body is informative only

		return nil, fmt.Errorf("%w: %d %s %s", ErrUnexpectedStatus, response.StatusCode, failure.Type, failure.Message)
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return nil, err
	}

	return response.Header, nil
}

func (lg *LoadGenerator) remember(request sentRequest) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	if len(lg.recentRequests) == recentRequestsCapacity {
		lg.recentRequests = lg.recentRequests[1:]
	}

	lg.recentRequests = append(lg.recentRequests, request)
}

func (lg *LoadGenerator) randomRecentRequest() (sentRequest, bool) {
	lg.mu.RLock()
	defer lg.mu.RUnlock()

	if len(lg.recentRequests) == 0 {
		return sentRequest{}, false
	}

	return lg.recentRequests[rand.Intn(len(lg.recentRequests))], true //nolint:gosec // load generation, weak random is fine
}

func (lg *LoadGenerator) randomAccount() string {
	return lg.config.Accounts[rand.Intn(len(lg.config.Accounts))] //nolint:gosec // load generation, weak random is fine
}

// randomAmount returns an amount between 1.00 and 500.00.
func randomAmount() decimal.Decimal {
	cents := rand.Int63n(49901) + 100 //nolint:gosec // load generation, weak random is fine
	return decimal.New(cents, -2)
}

// randomDirection favors credits so that demo balances tend to grow.
func randomDirection() string {
	if rand.Intn(100) < 60 { //nolint:gosec // load generation, weak random is fine
		return "C"
	}

	return "D"
}

func (lg *LoadGenerator) statsReporter(ctx context.Context) {
	defer lg.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lg.stopChan:
			return
		case <-ticker.C:
			lg.logStats("Stats")
		}
	}
}

func (lg *LoadGenerator) logStats(prefix string) {
	lg.mu.RLock()
	duration := time.Since(lg.startTime)
	requests := lg.requestCount
	failures := lg.errorCount
	replays := lg.replayCount
	lg.mu.RUnlock()

	if duration <= 0 || requests == 0 {
		return
	}

	rps := float64(requests) / duration.Seconds()
	errorRate := float64(failures) / float64(requests) * 100

	log.Printf("%s: %d requests in %v (%.1f req/s), %d confirmed replays, %d errors (%.1f%%), %d goroutines",
		prefix, requests, duration.Truncate(time.Second), rps, replays, failures, errorRate, runtime.NumGoroutine())
}
