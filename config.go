package hyperate

import (
	"net/url"
	"os"

	"github.com/pkg/errors"
)

// DefaultEndpoint is the public HypeRate channel socket.
const DefaultEndpoint = "wss://app.hyperate.io/socket/websocket"

// Config holds the configuration for a HypeRate client.
type Config struct {
	// Endpoint is the WebSocket URL of the channel socket.
	// Fallback: HYPERATE_ENDPOINT environment variable, then DefaultEndpoint.
	Endpoint string

	// APIToken authenticates the socket. It is sent as the "token" query parameter.
	// Fallback: HYPERATE_API_TOKEN environment variable.
	APIToken string
}

// resolveConfig fills empty fields from environment variables and validates required fields.
func resolveConfig(cfg Config) (Config, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv("HYPERATE_ENDPOINT")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.APIToken == "" {
		cfg.APIToken = os.Getenv("HYPERATE_API_TOKEN")
	}

	if cfg.APIToken == "" {
		return cfg, errors.New("APIToken is required (set in Config or HYPERATE_API_TOKEN env)")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return cfg, errors.Wrapf(err, "invalid Endpoint %q", cfg.Endpoint)
	}

	return cfg, nil
}

// socketURL returns the endpoint with the API token attached as a query parameter.
func (c Config) socketURL() (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parse endpoint")
	}
	q := u.Query()
	q.Set("token", c.APIToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
