package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"royale/domain/entities"
	"royale/domain/interfaces"

	"github.com/shopspring/decimal"
)

// Remote talks to a running storefront API over HTTP. It holds the bearer
// token issued at login, so one Remote serves one account at a time.
type Remote struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token string
}

// NewRemote creates a client for the API at baseURL
func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// envelope is the uniform response shape of every API route
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`

	Token      string             `json:"token"`
	User       *entities.User     `json:"user"`
	Raffle     *entities.Raffle   `json:"raffle"`
	Raffles    []*entities.Raffle `json:"raffles"`
	Count      int                `json:"count"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
	NewBalance decimal.Decimal    `json:"newBalance"`
}

func (r *Remote) Register(ctx context.Context, username, password string) (*entities.User, error) {
	env, err := r.do(ctx, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	r.setToken(env.Token)
	return env.User, nil
}

func (r *Remote) Login(ctx context.Context, username, password string) (*entities.User, error) {
	env, err := r.do(ctx, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	r.setToken(env.Token)
	return env.User, nil
}

func (r *Remote) ListRaffles(ctx context.Context) ([]*entities.Raffle, error) {
	env, err := r.do(ctx, http.MethodGet, "/api/v1/raffles", nil)
	if err != nil {
		return nil, err
	}
	return env.Raffles, nil
}

func (r *Remote) GetRaffle(ctx context.Context, id int64) (*entities.Raffle, error) {
	env, err := r.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/raffles/%d", id), nil)
	if err != nil {
		return nil, err
	}
	return env.Raffle, nil
}

func (r *Remote) Purchase(ctx context.Context, raffleID int64, count int) (*interfaces.PurchaseResult, error) {
	env, err := r.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/raffles/%d/purchase", raffleID),
		map[string]int{"count": count})
	if err != nil {
		return nil, err
	}
	return &interfaces.PurchaseResult{
		Raffle:     env.Raffle,
		Count:      env.Count,
		TotalPrice: env.TotalPrice,
		NewBalance: env.NewBalance,
	}, nil
}

func (r *Remote) ClaimFreeTicket(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	env, err := r.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/raffles/%d/free-entry", raffleID), nil)
	if err != nil {
		return nil, err
	}
	return env.Raffle, nil
}

func (r *Remote) Profile(ctx context.Context) (*entities.User, error) {
	env, err := r.do(ctx, http.MethodGet, "/api/v1/profile", nil)
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (r *Remote) setToken(token string) {
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
}

func (r *Remote) currentToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

// do sends one request and decodes the uniform envelope. A business failure
// comes back as a DomainError carrying the server's kind, so errors survive
// the transport unchanged.
func (r *Remote) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := r.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	if !env.OK {
		if env.Code != "" {
			return nil, &entities.DomainError{Kind: entities.ErrorKind(env.Code), Message: env.Error}
		}
		return nil, fmt.Errorf("request to %s failed with status %d: %s", path, resp.StatusCode, env.Error)
	}
	return &env, nil
}
