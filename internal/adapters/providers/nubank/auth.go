package nubank

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// CertificatePassword protects the certificates issued by the app login flow.
const CertificatePassword = "nubank"

const (
	legacyClientID     = "legacy_client_id"
	legacyClientSecret = "legacy_client_secret"
)

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Login        string `json:"login"`
	Password     string `json:"password"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	Links       sessionLinks `json:"_links"`
}

type sessionLinks struct {
	Events     linkRef `json:"events"`
	Ghostflame linkRef `json:"ghostflame"`
}

type linkRef struct {
	Href string `json:"href"`
}

// LoadCertificate reads a PKCS#12 certificate file issued for the account.
func LoadCertificate(path string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read certificate: %w", err)
	}
	return ParseCertificate(data)
}

// ParseCertificate decodes PKCS#12 certificate data.
func ParseCertificate(data []byte) (tls.Certificate, error) {
	key, cert, err := pkcs12.Decode(data, CertificatePassword)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to decode certificate: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

// NewMTLSClient returns an HTTP client presenting cert on every connection.
func NewMTLSClient(cert tls.Certificate, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Authenticate discovers the service URLs and logs in. It must be called once
// before any fetch.
func (p *Provider) Authenticate(ctx context.Context) error {
	var discovery map[string]string
	if err := p.getJSON(ctx, p.config.DiscoveryURL, &discovery); err != nil {
		return fmt.Errorf("failed to discover service urls: %w", err)
	}
	tokenURL := discovery["token"]
	if tokenURL == "" {
		return fmt.Errorf("nubank: discovery response has no token url")
	}

	var resp tokenResponse
	err := p.postJSON(ctx, tokenURL, tokenRequest{
		GrantType:    "password",
		Login:        p.config.CPF,
		Password:     p.config.Password,
		ClientID:     legacyClientID,
		ClientSecret: legacyClientSecret,
	}, &resp)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("nubank: login response has no access token")
	}

	p.accessToken = resp.AccessToken
	p.links = resp.Links

	p.logger.Info("authenticated")
	return nil
}
