// Package rpc implements the one-shot JSON-RPC interface of a slim hub.
//
// Every call is a single POST to /jsonrpc.js with a slim.request body:
//
//	{"method":"slim.request","id":1,"params":["<playerID or ->",["cmd","args"...]]}
//
// The client is stateless beyond the endpoint URL; retry policy lives in
// the session layer.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// PlayerStatusCommand is the slim status query used for both one-shot
// status polls and the streaming subscription request.
const PlayerStatusCommand = "status - 1 tags:aBcdgjKlNotuxyY power"

// NoPlayer is the player id placeholder for hub-level commands.
const NoPlayer = "-"

// DiscoverCommand enumerates the first hundred players the hub manages.
const DiscoverCommand = "players 0 99"

// ClientConfig configures an RPC client.
type ClientConfig struct {
	// Host is the hub hostname or IP.
	Host string

	// Port is the hub HTTP port.
	Port int

	// Timeout is the per-call HTTP timeout (default: 10s).
	Timeout time.Duration
}

// DefaultClientConfig returns the default RPC client configuration for a hub.
func DefaultClientConfig(host string, port int) ClientConfig {
	return ClientConfig{
		Host:    host,
		Port:    port,
		Timeout: 10 * time.Second,
	}
}

// Client issues slim.request calls to a hub.
type Client struct {
	endpoint   string
	baseURL    string
	httpClient *http.Client
	nextID     atomic.Int64
}

// NewClient creates a new RPC client for the configured hub.
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	base := fmt.Sprintf("http://%s:%d/", config.Host, config.Port)
	return &Client{
		endpoint:   base + "jsonrpc.js",
		baseURL:    base,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// BaseURL returns the hub's HTTP base URL ("http://host:port/"), used to
// derive cover-art URLs.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request is the slim.request envelope.
type request struct {
	Method string `json:"method"`
	ID     int64  `json:"id"`
	Params [2]any `json:"params"`
}

// response is the slim.request reply envelope.
type response struct {
	Result json.RawMessage `json:"result"`
}

// Request issues one slim.request call and returns the raw result object.
// The command string is whitespace-split into tokens.
func (c *Client) Request(ctx context.Context, playerID, command string) (json.RawMessage, error) {
	body, err := json.Marshal(request{
		Method: "slim.request",
		ID:     c.nextID.Add(1),
		Params: [2]any{playerID, strings.Fields(command)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{URL: c.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{URL: c.endpoint, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: c.endpoint, Err: err}
	}

	var envelope response
	if err := json.Unmarshal(answer, &envelope); err != nil {
		return nil, &ProtocolError{Payload: string(answer), Err: err}
	}

	return envelope.Result, nil
}

// PlayerInfo describes one player reported by discovery.
type PlayerInfo struct {
	// ID is the hub-assigned stable player identifier (usually a MAC).
	ID string

	// Name is the player's display name.
	Name string

	// CanPowerOff reports whether the player supports power control.
	CanPowerOff bool
}

// playersResult is the result shape of the discovery command.
type playersResult struct {
	Count       flexInt `json:"count"`
	PlayersLoop []struct {
		PlayerID    string   `json:"playerid"`
		Name        string   `json:"name"`
		CanPowerOff flexBool `json:"canpoweroff"`
	} `json:"players_loop"`
}

// Players enumerates the players the hub manages.
// Returns the player list and the hub-reported total count.
func (c *Client) Players(ctx context.Context) ([]PlayerInfo, int, error) {
	result, err := c.Request(ctx, NoPlayer, DiscoverCommand)
	if err != nil {
		return nil, 0, err
	}

	var parsed playersResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, 0, &ProtocolError{Payload: string(result), Err: err}
	}

	players := make([]PlayerInfo, 0, len(parsed.PlayersLoop))
	for _, p := range parsed.PlayersLoop {
		players = append(players, PlayerInfo{
			ID:          p.PlayerID,
			Name:        p.Name,
			CanPowerOff: bool(p.CanPowerOff),
		})
	}

	return players, int(parsed.Count), nil
}

// PlayerStatus polls one player's full status. The raw result has the
// same shape as a streaming status push and is decoded by the status
// package.
func (c *Client) PlayerStatus(ctx context.Context, playerID string) (json.RawMessage, error) {
	return c.Request(ctx, playerID, PlayerStatusCommand)
}

// Command dispatches a playback command to a player. Fire-and-forget
// semantics: the response body is inspected only for errors.
func (c *Client) Command(ctx context.Context, playerID, command string) error {
	_, err := c.Request(ctx, playerID, command)
	return err
}
