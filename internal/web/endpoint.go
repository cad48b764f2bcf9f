package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// VersionInfo is the /json/version document of a DevTools endpoint.
type VersionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ResolveEndpoint turns a "host:port" or http URL into the browser's
// websocket debugger URL. Websocket URLs are returned unchanged.
func ResolveEndpoint(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		return endpoint, nil
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	base, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint %q: %v", ErrEndpointUnavailable, endpoint, err)
	}
	versionURL := base.JoinPath("json", "version").String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrEndpointUnavailable, versionURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned status %d", ErrEndpointUnavailable, versionURL, resp.StatusCode)
	}

	var info VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("%w: error decoding version response: %v", ErrEndpointUnavailable, err)
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("%w: %s has no webSocketDebuggerUrl", ErrEndpointUnavailable, versionURL)
	}

	slog.Info("resolved browser endpoint", "browser", info.Browser, "protocol", info.ProtocolVersion)

	return rewriteHost(info.WebSocketDebuggerURL, base.Host), nil
}

// rewriteHost points the debugger URL at the host we reached. Chrome
// reports its own bind address, which is often unreachable from here.
func rewriteHost(wsURL, host string) string {
	u, err := url.Parse(wsURL)
	if err != nil {
		return wsURL
	}
	u.Host = host
	return u.String()
}
