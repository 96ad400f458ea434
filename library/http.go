package library

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/datagit-project/datagit/core"
	"github.com/golang-jwt/jwt/v5"
)

// HTTPPool resolves libraries from an HTTPS repository. Requests carry
// a bearer token; JWT tokens are checked for expiry client-side before
// each request so an expired token fails fast instead of round-tripping.
type HTTPPool struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func (p *HTTPPool) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

// checkToken rejects JWT bearer tokens that are already expired.
// Opaque tokens pass through untouched; the server is the authority
// either way.
func (p *HTTPPool) checkToken() error {
	if p.Token == "" || strings.Count(p.Token, ".") != 2 {
		return nil
	}
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(p.Token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(time.Now()) {
		return fmt.Errorf("bearer token expired at %s", exp.Time.Format(time.RFC3339))
	}
	return nil
}

// Resolve fetches the library package, declining with (nil, nil) on a
// 404.
func (p *HTTPPool) Resolve(ctx context.Context, lib core.Library) (core.MountableLibrary, error) {
	if err := p.checkToken(); err != nil {
		return nil, fmt.Errorf("library %s: %w", lib, err)
	}

	url := strings.TrimSuffix(p.BaseURL, "/") + "/" + PackageName(lib)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", lib, err)
	}
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := p.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", lib, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("library %s: repository returned status %d", lib, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", lib, err)
	}
	return New(lib, data), nil
}
