package routerapi

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/irctrakz/routertraffic/pkg/logging"
)

const (
	authPath          = "/index.html"
	sessionCookieName = "SESSIONID"
)

var sessionCookieRe = regexp.MustCompile(sessionCookieName + `=([^;]+)`)

// Authenticate logs into the router with HTTP Basic credentials and stores
// the session token from the SESSIONID cookie. Calling it again simply
// replaces the session.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

// Invalidate forgets the session token so the next poll logs in again.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// Authenticated reports whether a session token is held.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

func (c *Client) authenticateLocked(ctx context.Context) error {
	url := c.baseURL + authPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &TransportError{Op: "authenticate", Err: err}
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)

	c.log.WithField("url", url).Debug("authenticating")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "authenticate", Err: err}
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		if resp.StatusCode >= 300 {
			c.log.WithField("status", resp.StatusCode).Debug("authentication redirect, not following")
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthenticationError{Reason: "credentials rejected", StatusCode: resp.StatusCode}
	default:
		return &TransportError{Op: "authenticate", StatusCode: resp.StatusCode}
	}

	token, err := extractSessionToken(resp.Header.Values("Set-Cookie"))
	if err != nil {
		return err
	}
	c.token = token
	c.log.WithFields(logrus.Fields{
		"status":  resp.StatusCode,
		"session": logging.Redact(token),
	}).Info("authenticated")
	return nil
}

// extractSessionToken returns the SESSIONID value from a list of Set-Cookie headers.
func extractSessionToken(setCookies []string) (string, error) {
	for _, h := range setCookies {
		if !strings.Contains(h, sessionCookieName+"=") {
			continue
		}
		m := sessionCookieRe.FindStringSubmatch(h)
		if m == nil {
			return "", &AuthenticationError{Reason: "failed to extract " + sessionCookieName + " from cookie"}
		}
		return m[1], nil
	}
	return "", &AuthenticationError{Reason: sessionCookieName + " cookie not found in response headers"}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
