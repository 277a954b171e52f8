package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eversafe/go-vault-sync/internal/logger"
	"github.com/eversafe/go-vault-sync/models"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

// HTTPClientConfig configures the HTTP vault adapter.
type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

type httpVaultAdapter struct {
	client *resty.Client
	log    *logger.Logger

	mu    sync.RWMutex
	token string
}

// NewHTTPVaultAdapter builds a [VaultServerAdapter] speaking the server's
// /v1/Vault REST surface over resty.
func NewHTTPVaultAdapter(cfg HTTPClientConfig, log *logger.Logger) VaultServerAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpVaultAdapter{client: cli, log: log}
}

func (h *httpVaultAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpVaultAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpVaultAdapter) TokenUsername() (string, error) {
	token := h.Token()
	if token == "" {
		return "", errors.New("no token set")
	}
	return parseUsernameFromJWT(token)
}

func (h *httpVaultAdapter) GetVault(ctx context.Context) (models.VaultGetResponse, error) {
	resp, err := h.authedRequest(ctx).Get("/v1/Vault")
	if err != nil {
		return models.VaultGetResponse{}, fmt.Errorf("get vault request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.VaultGetResponse{}, err
	}

	var out models.VaultGetResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.VaultGetResponse{}, fmt.Errorf("decode vault response: %w", ErrEmptyResponse)
	}

	return out, nil
}

func (h *httpVaultAdapter) GetMergeCandidates(ctx context.Context, currentRevision int64) ([]models.Vault, error) {
	resp, err := h.authedRequest(ctx).
		SetQueryParam("currentRevisionNumber", strconv.FormatInt(currentRevision, 10)).
		Get("/v1/Vault/merge")
	if err != nil {
		return nil, fmt.Errorf("get merge candidates request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var out models.VaultMergeResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode merge candidates response: %w", ErrEmptyResponse)
	}

	return out.Vaults, nil
}

func (h *httpVaultAdapter) SaveVault(ctx context.Context, vault models.Vault) (models.VaultSaveResponse, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(vault).
		Post("/v1/Vault")
	if err != nil {
		return models.VaultSaveResponse{}, fmt.Errorf("save vault request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.VaultSaveResponse{}, err
	}

	var out models.VaultSaveResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.VaultSaveResponse{}, fmt.Errorf("decode save response: %w", ErrEmptyResponse)
	}

	return out, nil
}

func (h *httpVaultAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
}

func parseUsernameFromJWT(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("empty subject claim")
	}

	return sub, nil
}
