package lupusec

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/sync/cio"
	logp "github.com/charmbracelet/log"
	"github.com/j-keck/arping"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "lupusec",
})

// SetLogLevel sets the level of the client logger.
func SetLogLevel(level logp.Level) {
	log.SetLevel(level)
}

const DefaultTimeout = 10 * time.Second

const (
	pathPanelCond     = "/action/panelCondGet"
	pathPanelCondPost = "/action/panelCondPost"
	pathToken         = "/action/tokenGet"
	pathDeviceList    = "/action/deviceListGet"

	headerToken = "X-Token"

	// only one area is supported.
	area = 1

	maxBodySize = 4 << 20
)

// Credentials of the panel web interface.
type Credentials struct {
	URL      string
	Username string
	Password string
}

// Client talks to a LUPUSEC XT panel over its web API.
type Client struct {
	creds   Credentials
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

type Option func(c *Client)

// WithTimeout bounds every request made by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func New(creds Credentials, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(creds.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", creds.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid url %q: scheme must be http or https", creds.URL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid url %q: missing host", creds.URL)
	}

	cli := &Client{
		creds:   creds,
		base:    base,
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// Host is the host part of the panel url, without the port.
func (c *Client) Host() string {
	return c.base.Hostname()
}

// PanelState reads the current arm mode of the panel.
func (c *Client) PanelState(ctx context.Context) (PanelState, error) {
	log.Debug("panel state")
	body, err := c.get(ctx, "panelCondGet", pathPanelCond, nil, nil)
	if err != nil {
		return PanelState{}, err
	}
	state, err := parsePanelState(body)
	if err != nil {
		requestErrorCounter.WithLabelValues("panelCondGet").Inc()
		return PanelState{}, err
	}
	return state, nil
}

// Reachable reports whether the panel answers panelCondGet with a 200,
// regardless of what it answers.
func (c *Client) Reachable(ctx context.Context) bool {
	resp, err := c.do(ctx, "reachable", pathPanelCond, nil, nil)
	if err != nil {
		log.Debug("panel not reachable", "err", err)
		return false
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		log.Debug("panel not reachable", "status", resp.StatusCode)
		return false
	}
	return true
}

// Token asks the panel for a new mutation token.
func (c *Client) Token(ctx context.Context) (Token, error) {
	log.Debug("token")
	body, err := c.get(ctx, "tokenGet", pathToken, nil, nil)
	if err != nil {
		return "", err
	}
	token, err := parseToken(body)
	if err != nil {
		requestErrorCounter.WithLabelValues("tokenGet").Inc()
		return "", err
	}
	return token, nil
}

// SetMode changes the panel mode using a fresh token.
//
// It does not report failures: they are logged, and the only way to know
// whether the panel changed mode is to read its state again.
func (c *Client) SetMode(ctx context.Context, mode Mode) {
	if !mode.valid() {
		log.Error("refusing to set invalid mode", "mode", int(mode))
		return
	}

	token, err := c.Token(ctx)
	if err != nil {
		log.Error("could not get token", "mode", mode, "err", err)
		return
	}

	query := url.Values{}
	query.Set("area", strconv.Itoa(area))
	query.Set("mode", strconv.Itoa(int(mode)))
	header := http.Header{}
	header.Set(headerToken, string(token))

	body, err := c.get(ctx, "panelCondPost", pathPanelCondPost, query, header)
	if err != nil {
		log.Error("could not set mode", "mode", mode, "err", err)
		return
	}
	log.Info("mode set", "mode", mode, "response", strings.TrimSpace(string(body)))
}

// Devices lists the sensors known to the panel.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	log.Debug("devices")
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	body, err := c.get(ctx, "deviceListGet", pathDeviceList, nil, header)
	if err != nil {
		return nil, err
	}
	devices, err := parseDevices(body)
	if err != nil {
		requestErrorCounter.WithLabelValues("deviceListGet").Inc()
		return nil, err
	}
	return devices, nil
}

// get does the request and reads the body, any non-200 is a transport
// error.
func (c *Client) get(
	ctx context.Context,
	op, path string,
	query url.Values,
	header http.Header,
) ([]byte, error) {
	resp, err := c.do(ctx, op, path, query, header)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		requestErrorCounter.WithLabelValues(op).Inc()
		return nil, transportError(op, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(cio.TimeoutReader(resp.Body, c.timeout), maxBodySize))
	if err != nil {
		requestErrorCounter.WithLabelValues(op).Inc()
		return nil, transportError(op, fmt.Errorf("could not read body: %w", err))
	}
	return body, nil
}

func (c *Client) do(
	ctx context.Context,
	op, path string,
	query url.Values,
	header http.Header,
) (*http.Response, error) {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, transportError(op, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)

	requestCounter.WithLabelValues(op).Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		requestErrorCounter.WithLabelValues(op).Inc()
		return nil, transportError(op, err)
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelBody releases the request context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()
}

// MacAddress resolves the hardware address of the given IP. Needs
// cap_net_raw.
func MacAddress(ip string) (string, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return "", fmt.Errorf("could not get the mac address: %q is not an ip", ip)
	}
	hw, _, err := arping.Ping(addr)
	if err != nil {
		return "", fmt.Errorf("could not get the mac address: %w", err)
	}
	return hw.String(), nil
}
