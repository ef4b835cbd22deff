package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gwtypes "github.com/danilocontato-coder/quotemasterpro-sub002/internal/core/datamodel/gateway"
)

// Error is a gateway-level rejection carrying the decoded error envelope.
// Callers branch on it to distinguish recoverable rejections (invalid split
// wallet) from fatal ones.
type Error struct {
	StatusCode int
	Errors     []gwtypes.APIError
}

func (e *Error) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("gateway returned %d: %s (%s)", e.StatusCode, e.Errors[0].Description, e.Errors[0].Code)
	}
	return fmt.Sprintf("gateway returned %d", e.StatusCode)
}

func (e *Error) Has(code string) bool {
	for _, apiErr := range e.Errors {
		if apiErr.Code == code {
			return true
		}
	}
	return false
}

// IsInvalidWallet reports whether the rejection points at the split's
// payout destination rather than the charge itself.
func (e *Error) IsInvalidWallet() bool {
	if e.Has("invalid_wallet") || e.Has("invalid_split") {
		return true
	}
	for _, apiErr := range e.Errors {
		if strings.Contains(strings.ToLower(apiErr.Description), "wallet") {
			return true
		}
	}
	return false
}

func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the payment gateway REST API. Every call is one bounded
// HTTP round trip; retries are the caller's concern.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) CreateCustomer(ctx context.Context, req *gwtypes.CustomerRequest) (*gwtypes.Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var customer gwtypes.Customer
	if err := c.do(ctx, http.MethodPost, "/v3/customers", req, &customer); err != nil {
		return nil, err
	}

	c.logger.Info("gateway customer created", "customer_id", customer.ID)
	return &customer, nil
}

// FindCustomerByTaxID returns nil without error when no customer matches.
func (c *Client) FindCustomerByTaxID(ctx context.Context, taxID string) (*gwtypes.Customer, error) {
	var list struct {
		Data []gwtypes.Customer `json:"data"`
	}
	path := "/v3/customers?cpfCnpj=" + url.QueryEscape(taxID)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return &list.Data[0], nil
}

func (c *Client) CreateCharge(ctx context.Context, req *gwtypes.ChargeRequest) (*gwtypes.Charge, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var charge gwtypes.Charge
	if err := c.do(ctx, http.MethodPost, "/v3/payments", req, &charge); err != nil {
		return nil, err
	}

	c.logger.Info("gateway charge created",
		"charge_id", charge.ID,
		"value", charge.Value.String(),
		"split_count", len(req.Split))
	return &charge, nil
}

func (c *Client) GetCharge(ctx context.Context, chargeID string) (*gwtypes.Charge, error) {
	var charge gwtypes.Charge
	if err := c.do(ctx, http.MethodGet, "/v3/payments/"+url.PathEscape(chargeID), nil, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (c *Client) CreateTransfer(ctx context.Context, req *gwtypes.TransferRequest) (*gwtypes.Transfer, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var transfer gwtypes.Transfer
	if err := c.do(ctx, http.MethodPost, "/v3/transfers", req, &transfer); err != nil {
		return nil, err
	}

	c.logger.Info("gateway transfer created",
		"transfer_id", transfer.ID,
		"value", transfer.Value.String(),
		"status", string(transfer.Status))
	return &transfer, nil
}

func (c *Client) GetTransfer(ctx context.Context, transferID string) (*gwtypes.Transfer, error) {
	var transfer gwtypes.Transfer
	if err := c.do(ctx, http.MethodGet, "/v3/transfers/"+url.PathEscape(transferID), nil, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// FindAccountByTaxID looks up an existing sub-account for a legal entity.
// Nil without error when none exists.
func (c *Client) FindAccountByTaxID(ctx context.Context, taxID string) (*gwtypes.Account, error) {
	var list struct {
		Data []gwtypes.Account `json:"data"`
	}
	path := "/v3/accounts?cpfCnpj=" + url.QueryEscape(taxID)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return &list.Data[0], nil
}

func (c *Client) CreateAccount(ctx context.Context, req *gwtypes.AccountRequest) (*gwtypes.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var account gwtypes.Account
	if err := c.do(ctx, http.MethodPost, "/v3/accounts", req, &account); err != nil {
		return nil, err
	}

	c.logger.Info("gateway sub-account created",
		"account_id", account.ID,
		"wallet_id", account.WalletID)
	return &account, nil
}

// WalletExists confirms a payout destination is still live at the gateway.
func (c *Client) WalletExists(ctx context.Context, walletID string) (bool, error) {
	var list struct {
		Data []gwtypes.Account `json:"data"`
	}
	path := "/v3/accounts?walletId=" + url.QueryEscape(walletID)
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	if err != nil {
		var gwErr *Error
		if errors.As(err, &gwErr) && gwErr.IsNotFound() {
			return false, nil
		}
		return false, err
	}
	return len(list.Data) > 0, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("request creation error: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("response read error: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		gwErr := &Error{StatusCode: resp.StatusCode}
		var envelope gwtypes.ErrorResponse
		if err := json.Unmarshal(respBody, &envelope); err == nil {
			gwErr.Errors = envelope.Errors
		}
		c.logger.Error("gateway call rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"response", string(respBody))
		return gwErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("response unmarshal error: %w", err)
		}
	}

	return nil
}
