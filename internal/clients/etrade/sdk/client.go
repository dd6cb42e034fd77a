// Package sdk implements a minimal E*TRADE REST client: OAuth 1.0a request
// signing, the three-leg authorization flow, and rate-limited access to the
// accounts, balance, portfolio and transactions endpoints.
package sdk

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	productionBaseURL = "https://api.etrade.com"
	sandboxBaseURL    = "https://apisb.etrade.com"

	productionAuthURL = "https://us.etrade.com/e/t/etws/authorize"
	sandboxAuthURL    = "https://etwssandbox.etrade.com/e/t/etws/authorize"

	defaultRequestDelay = 500 * time.Millisecond
	requestQueueSize    = 100
	maxAttempts         = 3
)

// Config holds the credentials and tuning knobs for the SDK client.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Sandbox        bool
	RequestDelay   time.Duration // minimum spacing between API requests
}

// RequestToken is the short-lived token from the first OAuth leg. The user
// authorizes it in a browser before it can be traded for an access token.
type RequestToken struct {
	Token  string
	Secret string
}

// AccessToken signs all API requests after the user has authorized.
type AccessToken struct {
	Token  string
	Secret string
}

// APIError is returned for non-200 responses that are not retried away.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// IsAuthError reports whether the response indicates rejected or expired
// OAuth credentials rather than a bad request.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		strings.Contains(e.Body, "oauth_problem") ||
		strings.Contains(e.Body, "token_rejected")
}

// tokenPair overrides the access token for OAuth token-leg requests.
type tokenPair struct {
	token  string
	secret string
}

// requestJob represents a job in the rate limiting queue
type requestJob struct {
	path     string
	query    url.Values
	oauth    map[string]string // extra oauth_* parameters (callback, verifier)
	token    *tokenPair        // nil = sign with the current access token
	resultCh chan requestResult
}

// requestResult represents the result of a request
type requestResult struct {
	body []byte
	err  error
}

// Client is the E*TRADE SDK client. All requests funnel through a single
// worker goroutine that enforces the configured delay between calls.
type Client struct {
	consumerKey    string
	consumerSecret string
	baseURL        string
	authURL        string
	httpClient     *http.Client
	log            zerolog.Logger
	requestDelay   time.Duration
	retryBaseDelay time.Duration

	mu           sync.RWMutex
	accessToken  string
	accessSecret string

	requestQueue chan requestJob
	stopChan     chan struct{}
	workerDone   chan struct{}
	closeMu      sync.RWMutex
	closed       bool
}

// NewClient creates a new E*TRADE SDK client and starts its rate limiting worker.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := productionBaseURL
	authURL := productionAuthURL
	if cfg.Sandbox {
		baseURL = sandboxBaseURL
		authURL = sandboxAuthURL
	}

	delay := cfg.RequestDelay
	if delay <= 0 {
		delay = defaultRequestDelay
	}

	c := &Client{
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		baseURL:        baseURL,
		authURL:        authURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		log:            log.With().Str("component", "etrade-sdk").Logger(),
		requestDelay:   delay,
		retryBaseDelay: time.Second,
		requestQueue:   make(chan requestJob, requestQueueSize),
		stopChan:       make(chan struct{}),
		workerDone:     make(chan struct{}),
	}

	// Start the rate limiting worker
	go c.worker()

	return c
}

// SetAccessToken installs the access token used to sign API requests.
func (c *Client) SetAccessToken(token, secret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
	c.accessSecret = secret
}

// ClearAccessToken drops the current access token.
func (c *Client) ClearAccessToken() {
	c.SetAccessToken("", "")
}

// HasAccessToken reports whether an access token is installed.
func (c *Client) HasAccessToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != "" && c.accessSecret != ""
}

// Sandbox reports whether the client talks to the sandbox environment.
func (c *Client) Sandbox() bool {
	return c.baseURL == sandboxBaseURL
}

// get enqueues a GET request and blocks until the worker has executed it.
func (c *Client) get(path string, query url.Values, oauth map[string]string, token *tokenPair) ([]byte, error) {
	resultCh := make(chan requestResult, 1)

	job := requestJob{
		path:     path,
		query:    query,
		oauth:    oauth,
		token:    token,
		resultCh: resultCh,
	}

	// Enqueue under the close lock: anything queued while the client is
	// open is guaranteed to be drained by the worker during shutdown.
	c.closeMu.RLock()
	if c.closed {
		c.closeMu.RUnlock()
		return nil, fmt.Errorf("client is closed")
	}
	select {
	case c.requestQueue <- job:
		c.closeMu.RUnlock()
	default:
		c.closeMu.RUnlock()
		return nil, fmt.Errorf("request queue is full")
	}

	result := <-resultCh
	return result.body, result.err
}

// worker processes requests from the queue sequentially with rate limiting
func (c *Client) worker() {
	defer close(c.workerDone)

	var lastRequestTime time.Time
	firstRequest := true

	processJob := func(job requestJob) {
		// Wait out the rate limit delay (except before the first request)
		if !firstRequest {
			elapsed := time.Since(lastRequestTime)
			if elapsed < c.requestDelay {
				time.Sleep(c.requestDelay - elapsed)
			}
		}
		firstRequest = false

		var result requestResult
		result.body, result.err = c.execute(job)

		lastRequestTime = time.Now()

		job.resultCh <- result
	}

	for {
		select {
		case <-c.stopChan:
			// Drain remaining jobs from queue before exiting
			for {
				select {
				case job := <-c.requestQueue:
					processJob(job)
				default:
					return
				}
			}
		case job := <-c.requestQueue:
			processJob(job)
		}
	}
}

// Close shuts down the rate limiting worker after it has drained any
// queued requests. Safe to call more than once.
func (c *Client) Close() {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}
	c.closed = true
	c.closeMu.Unlock()

	close(c.stopChan)
	<-c.workerDone
}

// execute signs and sends a single request, retrying transport errors and
// 5xx responses with exponential backoff (1s, 2s). Each attempt is re-signed
// so it carries a fresh nonce and timestamp.
func (c *Client) execute(job requestJob) ([]byte, error) {
	if c.consumerKey == "" || c.consumerSecret == "" {
		return nil, fmt.Errorf("consumer credentials are not configured")
	}

	requestURL := c.baseURL + job.path

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.retryBaseDelay * time.Duration(1<<(attempt-1))
			c.log.Warn().
				Err(lastErr).
				Str("path", job.path).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying request")
			time.Sleep(backoff)
		}

		req, err := c.buildSignedRequest(requestURL, job)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
			c.log.Error().
				Int("status_code", resp.StatusCode).
				Str("response_body", apiErr.Body).
				Str("path", job.path).
				Msg("API returned non-200 status")
			return nil, apiErr
		}

		return body, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxAttempts, lastErr)
}

// buildSignedRequest assembles a GET request with an OAuth Authorization header.
func (c *Client) buildSignedRequest(requestURL string, job requestJob) (*http.Request, error) {
	token, secret := c.signingToken(job.token)

	oauthParams := map[string]string{
		"oauth_consumer_key":     c.consumerKey,
		"oauth_nonce":            newNonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	if token != "" {
		oauthParams["oauth_token"] = token
	}
	for k, v := range job.oauth {
		oauthParams[k] = v
	}

	// All parameters, query and protocol alike, enter the signature
	signed := url.Values{}
	for k, vals := range job.query {
		for _, v := range vals {
			signed.Add(k, v)
		}
	}
	for k, v := range oauthParams {
		signed.Set(k, v)
	}

	baseString := signatureBaseString(http.MethodGet, requestURL, signed)
	oauthParams["oauth_signature"] = signHMACSHA1(signingKey(c.consumerSecret, secret), baseString)

	fullURL := requestURL
	if len(job.query) > 0 {
		fullURL += "?" + job.query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", authorizationHeader(oauthParams))
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// signingToken resolves which token pair signs this request.
func (c *Client) signingToken(override *tokenPair) (string, string) {
	if override != nil {
		return override.token, override.secret
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.accessSecret
}

// FetchRequestToken performs the first OAuth leg. The returned token must be
// authorized by the user via the AuthorizeURL before it can be exchanged.
func (c *Client) FetchRequestToken() (*RequestToken, error) {
	body, err := c.get("/oauth/request_token", nil,
		map[string]string{"oauth_callback": "oob"},
		&tokenPair{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request token: %w", err)
	}

	token, secret, err := parseTokenResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse request token response: %w", err)
	}

	c.log.Debug().Msg("Request token obtained")
	return &RequestToken{Token: token, Secret: secret}, nil
}

// AuthorizeURL returns the URL the user must open to approve a request
// token. E*TRADE displays a verification code there to paste back.
func (c *Client) AuthorizeURL(rt *RequestToken) string {
	return fmt.Sprintf("%s?key=%s&token=%s", c.authURL,
		url.QueryEscape(c.consumerKey), url.QueryEscape(rt.Token))
}

// FetchAccessToken trades an authorized request token and the verification
// code for an access token, and installs it on the client.
func (c *Client) FetchAccessToken(rt *RequestToken, verifier string) (*AccessToken, error) {
	body, err := c.get("/oauth/access_token", nil,
		map[string]string{"oauth_verifier": verifier},
		&tokenPair{token: rt.Token, secret: rt.Secret})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch access token: %w", err)
	}

	token, secret, err := parseTokenResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token response: %w", err)
	}

	c.SetAccessToken(token, secret)
	c.log.Info().Msg("Access token obtained")
	return &AccessToken{Token: token, Secret: secret}, nil
}

// parseTokenResponse decodes the form-encoded body of the OAuth token legs.
func parseTokenResponse(body []byte) (token, secret string, err error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse token response: %w", err)
	}

	token = values.Get("oauth_token")
	secret = values.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return "", "", fmt.Errorf("token response missing oauth_token or oauth_token_secret")
	}
	return token, secret, nil
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 500 {
		s = s[:500] + "..."
	}
	return s
}
