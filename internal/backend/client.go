// Package backend is the typed REST client for the game-engine service.
// The backend is the system of record for all game state; everything here
// is JSON over HTTP with snake_case field names.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gridbot/internal/domain"
)

// Config configures the backend client.
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Client executes single-attempt backend calls and classifies failures.
// Retry policy lives in the submission pipeline, not here.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a backend client.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    newHTTPClient(cfg.ConnectTimeout, cfg.RequestTimeout),
		logger:  cfg.Logger,
	}
}

// GameByThread fetches the game bound to a Discord thread.
func (c *Client) GameByThread(ctx context.Context, channelID string) (*domain.Game, error) {
	var game domain.Game
	q := url.Values{"channelId": {channelID}}
	if err := c.do(ctx, http.MethodGet, "/game/discord", q, nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// GameByCoach fetches the game currently awaiting DM input from a coach.
func (c *Client) GameByCoach(ctx context.Context, discordID string) (*domain.Game, error) {
	var game domain.Game
	q := url.Values{"discordId": {discordID}}
	if err := c.do(ctx, http.MethodGet, "/game/coach", q, nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// CoinTossCall registers the away coach's heads/tails call.
func (c *Client) CoinTossCall(ctx context.Context, gameID, call string) (*domain.Game, error) {
	var game domain.Game
	q := url.Values{"gameId": {gameID}, "coinTossCall": {call}}
	if err := c.do(ctx, http.MethodPut, "/game/coin_toss", q, nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// CoinTossChoice registers the winning coach's receive/defer (or overtime
// offense/defense) decision.
func (c *Client) CoinTossChoice(ctx context.Context, gameID, choice string) (*domain.Game, error) {
	var game domain.Game
	q := url.Values{"gameId": {gameID}, "coinTossChoice": {choice}}
	if err := c.do(ctx, http.MethodPut, "/game/make_coin_toss_choice", q, nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// SubmitOffense submits an offensive number with its play call.
func (c *Client) SubmitOffense(ctx context.Context, gameID string, number int, call domain.PlayCall, runoff domain.RunoffType, timeoutCalled bool) (*domain.Play, error) {
	var play domain.Play
	q := url.Values{
		"gameId":          {gameID},
		"offensiveNumber": {strconv.Itoa(number)},
		"playCall":        {string(call)},
		"runoffType":      {string(runoff)},
		"timeoutCalled":   {strconv.FormatBool(timeoutCalled)},
	}
	if err := c.do(ctx, http.MethodPost, "/play/submit_offense", q, nil, &play); err != nil {
		return nil, err
	}
	return &play, nil
}

// SubmitDefense submits a defensive number.
func (c *Client) SubmitDefense(ctx context.Context, gameID string, number int, timeoutCalled bool) (*domain.Play, error) {
	var play domain.Play
	q := url.Values{
		"gameId":          {gameID},
		"defensiveNumber": {strconv.Itoa(number)},
		"timeoutCalled":   {strconv.FormatBool(timeoutCalled)},
	}
	if err := c.do(ctx, http.MethodPost, "/play/submit_defense", q, nil, &play); err != nil {
		return nil, err
	}
	return &play, nil
}

// StartGame asks the backend to create a game between two teams.
func (c *Client) StartGame(ctx context.Context, homeTeam, awayTeam string) (*domain.Game, error) {
	var game domain.Game
	q := url.Values{"homeTeam": {homeTeam}, "awayTeam": {awayTeam}}
	if err := c.do(ctx, http.MethodPost, "/game/start", q, nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// EndGame asks the backend to end the game bound to a thread.
func (c *Client) EndGame(ctx context.Context, channelID string) (*domain.Game, error) {
	var game domain.Game
	q := url.Values{"channelId": {channelID}}
	if err := c.do(ctx, http.MethodPost, "/game/end", q, nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// MessageLog is the audit record forwarded for every processed submission.
type MessageLog struct {
	MessageType     string `json:"message_type"`
	GameID          string `json:"game_id"`
	PlayID          string `json:"play_id,omitempty"`
	MessageID       string `json:"message_id"`
	MessageLocation string `json:"message_location"`
	Timestamp       string `json:"timestamp"`
}

// LogMessage forwards an audit record. Callers treat this as
// fire-and-forget; a failure is logged, never surfaced to the user.
func (c *Client) LogMessage(ctx context.Context, rec MessageLog) error {
	return c.do(ctx, http.MethodPost, "/request_message_log", nil, rec, nil)
}

// Ping checks backend reachability. Used by the heartbeat job.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// do executes one request and classifies the outcome: transport failures
// and 5xx become TransientError, any body carrying an "error" field becomes
// ValidationError, everything else decodes into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 500 {
		return &TransientError{Status: resp.StatusCode, Body: string(data)}
	}

	if msg, found := errorField(data); found {
		return &ValidationError{Message: msg}
	}

	if resp.StatusCode >= 400 {
		return &ValidationError{Message: fmt.Sprintf("request rejected (HTTP %d)", resp.StatusCode)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorField reports whether a JSON body carries the literal "error" field,
// returning its message. A body with that field is always a classified
// failure, never a parseable success payload.
func errorField(data []byte) (string, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", false
	}
	raw, ok := probe["error"]
	if !ok {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return string(raw), true
	}
	return msg, true
}
