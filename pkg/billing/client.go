// Package billing is a client of the billing middleware. Clusters are paid for by orders placed
// on a billing account. Every request is authenticated by a short lived JWT signed with the secret
// shared with the middleware.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/exp/slices"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
)

const (
	ItemConflictTitle        = "MiddlewareItemConflict"
	InsufficientCreditsTitle = "MiddlewareInsufficientCredits"
	ServiceErrorTitle        = "MiddlewareServiceError"
)

// tokenTTL is the lifetime of the token sent with every request.
const tokenTTL = 60 * time.Second

// reauthenticateStatuses are answered by the middleware if it did not accept our token. Requests
// answered with one of them are retried once using a new token.
var reauthenticateStatuses = []int{
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusMethodNotAllowed,
	http.StatusProxyAuthRequired,
	http.StatusRequestTimeout,
}

func NewClient(logger *slog.Logger, secret []byte, timeout time.Duration) *Client {
	client := retryablehttp.NewClient()
	client.Logger = logger
	client.RetryMax = 1
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = timeout
	client.CheckRetry = checkRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{logger: logger, secret: secret, client: client}
	client.PrepareRetry = func(req *http.Request) error {
		logger.WarnContext(req.Context(), "Billing request was not authorized, retrying with a new token", "url", req.URL.String())
		return c.authorize(req)
	}
	return c
}

// Client calls the billing middleware. The base URL of the middleware is given on every call.
type Client struct {
	logger *slog.Logger
	secret []byte
	client *retryablehttp.Client
}

// checkRetry only retries requests the middleware rejected before acting on them. A request
// failing in transport may have been processed, so it is never sent again.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	return slices.Contains(reauthenticateStatuses, resp.StatusCode), nil
}

// GetCredits returns the credits left on the billing account.
func (c *Client) GetCredits(ctx context.Context, baseURL, billingAccountID string) (float64, error) {
	body := map[string]any{
		"credits": map[string]string{"billing_account_id": billingAccountID},
	}
	var response struct {
		Credits json.Number `json:"credits"`
	}
	if err := c.post(ctx, baseURL, "/get_credits", body, &response); err != nil {
		return 0, err
	}

	credits, err := response.Credits.Float64()
	if err != nil {
		return 0, errdef.WithTitle(errdef.NewBadGateway("invalid credits %q: %v", response.Credits, err), ServiceErrorTitle)
	}
	return credits, nil
}

// CreateOrder creates an order on the billing account and returns its id.
func (c *Client) CreateOrder(ctx context.Context, baseURL, billingAccountID string) (string, error) {
	body := map[string]any{
		"order": map[string]string{"billing_account_id": billingAccountID},
	}
	var response struct {
		Order string `json:"order"`
	}
	if err := c.post(ctx, baseURL, "/create_order", body, &response); err != nil {
		return "", err
	}
	if response.Order == "" {
		return "", errdef.WithTitle(errdef.NewBadGateway("billing middleware did not return an order"), ServiceErrorTitle)
	}
	return response.Order, nil
}

func (c *Client) DeleteOrder(ctx context.Context, baseURL, orderID string) error {
	body := map[string]any{
		"order": map[string]string{"order_id": orderID},
	}
	return c.post(ctx, baseURL, "/delete_order", body, nil)
}

// AddOrderTag tags the order with the given name and value.
func (c *Client) AddOrderTag(ctx context.Context, baseURL, orderID, name, value string) error {
	body := map[string]any{
		"tag": map[string]string{"order_id": orderID, "tag_name": name, "tag_value": value},
	}
	return c.post(ctx, baseURL, "/add_order_tag", body, nil)
}

func (c *Client) post(ctx context.Context, baseURL, endpoint string, body any, response any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal billing request: %v", err)
	}

	url := strings.TrimSuffix(baseURL, "/") + endpoint
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return errdef.WithTitle(errdef.NewBadRequest("invalid billing middleware url %q: %v", baseURL, err), ServiceErrorTitle)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(req.Request); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Calling billing API", "url", url)
	resp, err := c.client.Do(req)
	if err != nil {
		return errdef.WithTitle(errdef.NewBadGateway("billing request to %s failed: %v", url, err), ServiceErrorTitle)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errdef.WithTitle(errdef.NewBadGateway("failed to read billing response from %s: %v", url, err), ServiceErrorTitle)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		if response == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, response); err != nil {
			return errdef.WithTitle(errdef.NewBadGateway("invalid billing response from %s: %v", url, err), ServiceErrorTitle)
		}
		return nil
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		c.logger.WarnContext(ctx, "Billing item conflict", "url", url, "body", string(respBody))
		return errdef.WithTitle(errdef.NewConflict("The item you are trying to add already exists: %s", respBody), ItemConflictTitle)
	default:
		c.logger.ErrorContext(ctx, "Billing request failed", "url", url, "status", resp.StatusCode, "body", string(respBody))
		return errdef.WithTitle(errdef.NewBadGateway("billing request to %s failed with status %d", url, resp.StatusCode), ServiceErrorTitle)
	}
}

// authorize sets the Authorization header of req to a newly signed token.
func (c *Client) authorize(req *http.Request) error {
	if len(c.secret) == 0 {
		return errdef.WithTitle(errors.New("no secret to sign billing tokens"), ServiceErrorTitle)
	}

	token, err := jwt.NewBuilder().
		Expiration(time.Now().Add(tokenTTL)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build billing token: %v", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, c.secret))
	if err != nil {
		return fmt.Errorf("failed to sign billing token: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+string(signed))
	return nil
}

// InsufficientCredits is returned if a billing account cannot pay for a new cluster.
func InsufficientCredits(credits float64) error {
	return errdef.WithTitle(errdef.NewPaymentRequired("Insufficient credits to launch a cluster: %v available", credits), InsufficientCreditsTitle)
}
