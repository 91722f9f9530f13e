package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
)

var (
	apiCallsTotal        = expvar.NewInt("api_calls_total")
	apiErrorsTotal       = expvar.NewInt("api_errors_total")
	apiUnauthorizedTotal = expvar.NewInt("api_unauthorized_total")
)

type Options struct {
	BaseURL   string
	Transport http.RoundTripper
	// Timeout of zero keeps the transport default.
	Timeout time.Duration
	// OnUnauthorized runs on every 401 before ErrUnauthorized is returned.
	OnUnauthorized func(ctx context.Context)
}

type Client struct {
	baseURL        string
	http           *http.Client
	onUnauthorized func(ctx context.Context)
}

func New(opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           &http.Client{Transport: transport, Timeout: opts.Timeout},
		onUnauthorized: opts.OnUnauthorized,
	}
}

type CallOptions struct {
	Method string
	Body   interface{}
	Token  string
}

// Call performs one JSON request and decodes the response into out (which may be nil).
// No retries.
func (c *Client) Call(ctx context.Context, path string, opts CallOptions, out interface{}) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	return c.do(ctx, method, path, body, "application/json", opts.Token, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, token string, out interface{}) error {
	apiCallsTotal.Add(1)
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		apiErrorsTotal.Add(1)
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		apiUnauthorizedTotal.Add(1)
		_, _ = io.Copy(io.Discard, resp.Body)
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErrorsTotal.Add(1)
		_, _ = io.Copy(io.Discard, resp.Body)
		return &HTTPError{Status: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		apiErrorsTotal.Add(1)
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, credentials models.LoginRequest) (models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.Call(ctx, "/auth/login", CallOptions{Method: http.MethodPost, Body: credentials}, &resp)
	return resp, err
}

func (c *Client) SearchCustomers(ctx context.Context, mode models.SearchMode, query, token string) (models.SearchResult, error) {
	params := url.Values{}
	params.Set("by", string(mode))
	params.Set("q", query)
	var resp models.SearchResult
	err := c.Call(ctx, "/customers/search?"+params.Encode(), CallOptions{Token: token}, &resp)
	return resp, err
}

// GetCustomer returns nil when the API answers null or with a payload that
// carries no customer id.
func (c *Client) GetCustomer(ctx context.Context, id, token string) (*models.Customer, error) {
	var customer *models.Customer
	if err := c.Call(ctx, "/customers/"+url.PathEscape(id), CallOptions{Token: token}, &customer); err != nil {
		return nil, err
	}
	if customer == nil || customer.ID == "" {
		return nil, nil
	}
	return customer, nil
}

func (c *Client) GetCustomerPolicies(ctx context.Context, id, token string) (models.PolicyList, error) {
	var resp models.PolicyList
	err := c.Call(ctx, "/customers/"+url.PathEscape(id)+"/policies", CallOptions{Token: token}, &resp)
	return resp, err
}

// UploadImport streams r as the "file" part of a multipart POST to /imports.
func (c *Client) UploadImport(ctx context.Context, token, filename string, r io.Reader) (models.ImportResult, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(writer.Close())
	}()

	var resp models.ImportResult
	err := c.do(ctx, http.MethodPost, "/imports", pr, writer.FormDataContentType(), token, &resp)
	// Unblocks the writer goroutine if the transport never read the whole body.
	_ = pr.Close()
	return resp, err
}
