package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"sicbo_go/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetSubmission is one {market, amount} pair for the bet endpoint.
type BetSubmission struct {
	Market domain.Market   `json:"market"`
	Amount decimal.Decimal `json:"amount"`
}

// UserInfo is the user snapshot returned by the REST API.
type UserInfo struct {
	UserID   string          `json:"user_id"`
	Nickname string          `json:"nickname"`
	Balance  decimal.Decimal `json:"balance"`
}

// TableInfo is the table snapshot returned by the REST API.
type TableInfo struct {
	TableID string          `json:"table_id"`
	Name    string          `json:"name"`
	MinBet  decimal.Decimal `json:"min_bet"`
	MaxBet  decimal.Decimal `json:"max_bet"`
}

// APIClient is the HTTP collaborator carrying bet submissions and info
// fetches. Calls go through a token bucket and a circuit breaker; each
// call retries transient failures with exponential backoff.
type APIClient struct {
	baseURL    string
	tableID    string
	authToken  string
	httpClient *http.Client
	limiter    *RateLimiter
	breaker    *CircuitBreaker
}

// NewAPIClient builds the client from config.
func NewAPIClient(cfg *Config) *APIClient {
	return &APIClient{
		baseURL:    cfg.Server.APIURL,
		tableID:    cfg.Server.TableID,
		authToken:  cfg.Server.AuthToken,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    NewRateLimiter(5, 2),
		breaker:    NewCircuitBreaker("bet-api", 5, 2, 30*time.Second),
	}
}

type submitBetsRequest struct {
	RequestID string          `json:"request_id"`
	TableID   string          `json:"table_id"`
	Bets      []BetSubmission `json:"bets"`
}

type submitBetsResponse struct {
	NewBalance json.Number `json:"new_balance"`
}

// SubmitBets posts the staged bets and returns the server-declared new
// balance. RequestID makes server-side deduplication possible when a
// retry races a slow response.
func (c *APIClient) SubmitBets(ctx context.Context, bets []BetSubmission) (decimal.Decimal, error) {
	if len(bets) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no bets to submit", domain.ErrValidation)
	}

	req := submitBetsRequest{
		RequestID: uuid.NewString(),
		TableID:   c.tableID,
		Bets:      bets,
	}

	var resp submitBetsResponse
	if err := c.post(ctx, "/bets", req, &resp); err != nil {
		return decimal.Zero, err
	}

	balance, err := decimal.NewFromString(resp.NewBalance.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad balance %q", domain.ErrProtocol, resp.NewBalance)
	}
	return balance, nil
}

// FetchUserInfo retrieves the user snapshot.
func (c *APIClient) FetchUserInfo(ctx context.Context) (UserInfo, error) {
	var info UserInfo
	err := c.get(ctx, "/user", &info)
	return info, err
}

// FetchTableInfo retrieves the table snapshot.
func (c *APIClient) FetchTableInfo(ctx context.Context) (TableInfo, error) {
	var info TableInfo
	err := c.get(ctx, "/tables/"+c.tableID, &info)
	return info, err
}

func (c *APIClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// do runs one API call with up to 3 attempts and 1s/2s backoff between
// them. Failures feed the circuit breaker.
func (c *APIClient) do(ctx context.Context, method, path string, payload []byte, out any) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("%w: bet API circuit open", domain.ErrConnection)
	}
	c.limiter.Wait()

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			slog.Info("Retrying API call",
				slog.String("path", path), slog.Int("attempt", attempt), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = c.once(ctx, method, path, payload, out)
		if lastErr == nil {
			c.breaker.RecordSuccess()
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	c.breaker.RecordFailure()
	return fmt.Errorf("%w: %s %s: %v", domain.ErrConnection, method, path, lastErr)
}

func (c *APIClient) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
