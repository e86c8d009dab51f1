package binanceconnect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"onrampprovider/internal/sign"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=binanceconnect_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const defaultBaseURL = "https://sandbox.bifinitypay.com"

// Client calls the Binance Connect open API. Every request carries the
// merchant code, a millisecond timestamp and an RSA signature over the
// payload in the x-api-signature header.
type Client struct {
	baseURL      string
	httpClient   HTTPClient
	header       http.Header
	merchantCode string
	signer       sign.Signer
	now          func() time.Time
}

// ClientOption is a configuration option for the Binance Connect client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a Binance Connect client for a merchant identity.
func NewClient(merchantCode string, signer sign.Signer, options ...ClientOption) (*Client, error) {
	if merchantCode == "" {
		return nil, fmt.Errorf("binanceconnect: merchant code is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("binanceconnect: signer is required")
	}
	c := &Client{
		baseURL:      defaultBaseURL,
		httpClient:   http.DefaultClient,
		header:       http.Header{},
		merchantCode: merchantCode,
		signer:       signer,
		now:          time.Now,
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

// Network is one row of the crypto network list. Withdraw limits and fee
// are fetched but the quote path intentionally does not apply them.
type Network struct {
	CryptoCurrency string  `json:"cryptoCurrency"`
	Network        string  `json:"network"`
	WithdrawFee    float64 `json:"withdrawFee"`
	WithdrawMax    float64 `json:"withdrawMax"`
	WithdrawMin    float64 `json:"withdrawMin"`
}

// TradePair is one row of the trade-pair list. MinLimit and MaxLimit are
// optional on the wire; absence means "no bound on that side".
type TradePair struct {
	FiatCurrency   string   `json:"fiatCurrency"`
	CryptoCurrency string   `json:"cryptoCurrency"`
	PaymentMethod  string   `json:"paymentMethod"`
	Size           float64  `json:"size"`
	Quotation      float64  `json:"quotation"`
	MinLimit       *float64 `json:"minLimit"`
	MaxLimit       *float64 `json:"maxLimit"`
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GetNetworkList retrieves the crypto network list, unfiltered.
func (c *Client) GetNetworkList(ctx context.Context) ([]Network, error) {
	var out []Network
	if err := c.get(ctx, "/gateway-api/v1/public/open-api/connect/get-crypto-network-list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTradePairs retrieves the trade-pair list with quoted prices.
func (c *Client) GetTradePairs(ctx context.Context) ([]TradePair, error) {
	var out []TradePair
	if err := c.get(ctx, "/gateway-api/v1/public/open-api/connect/get-trade-pair-list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

type checkIPRequest struct {
	ClientUserIP string `json:"clientUserIp"`
}

type checkIPResponse struct {
	Status string `json:"status"`
}

// CheckIPAddress reports whether the provider will serve a client IP.
func (c *Client) CheckIPAddress(ctx context.Context, ipAddress string) (bool, error) {
	body, err := json.Marshal(checkIPRequest{ClientUserIP: ipAddress})
	if err != nil {
		return false, err
	}
	var out checkIPResponse
	if err := c.post(ctx, "/gateway-api/v1/public/open-api/connect/check-ip-address", body, &out); err != nil {
		return false, err
	}
	return out.Status == "pass", nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	ts := c.now().UnixMilli()
	signature, err := c.signPayload(string(body), ts)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("merchantCode", c.merchantCode)
	req.Header.Set("timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("x-api-signature", signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return fmt.Errorf("%s %s -> %d: %s", method, path, resp.StatusCode, string(b))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// signPayload signs the request body (when present) joined with the
// merchant suffix, exactly as the provider verifies it.
func (c *Client) signPayload(body string, ts int64) (string, error) {
	suffix := fmt.Sprintf("merchantCode=%s&timestamp=%d", c.merchantCode, ts)
	payload := suffix
	if len(body) >= 1 {
		payload = body + "&" + suffix
	}
	raw, err := c.signer.Sign(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// limits resolves the pair's optional bounds: 0 when no lower bound,
// the largest representable value when no upper bound.
func (p TradePair) limits() (min, max float64) {
	min = 0
	max = maxLimitDefault
	if p.MinLimit != nil {
		min = *p.MinLimit
	}
	if p.MaxLimit != nil {
		max = *p.MaxLimit
	}
	return min, max
}
