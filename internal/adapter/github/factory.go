package github

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
)

// Factory builds installation scoped clients for a GitHub App.
type Factory struct {
	appID      int64
	privateKey []byte
	baseURL    string
	transport  http.RoundTripper
	logger     *slog.Logger
}

// NewFactory creates factory for the app credentials.
func NewFactory(appID int64, privateKey, baseURL string, logger *slog.Logger) *Factory {
	return &Factory{
		appID:      appID,
		privateKey: []byte(privateKey),
		baseURL:    baseURL,
		transport:  http.DefaultTransport,
		logger:     logger,
	}
}

// ForInstallation returns a client authenticated as the installation.
func (f *Factory) ForInstallation(installationID int64) (*Client, error) {
	itr, err := ghinstallation.New(f.transport, f.appID, installationID, f.privateKey)
	if err != nil {
		return nil, fmt.Errorf("installation %d transport: %w", installationID, err)
	}
	if f.baseURL != "" {
		itr.BaseURL = strings.TrimSuffix(f.baseURL, "/")
	}
	return NewClient(&http.Client{Transport: itr, Timeout: 10 * time.Second}, f.baseURL, f.logger)
}
