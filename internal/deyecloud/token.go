package deyecloud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials identify an account toward /account/token.
type Credentials struct {
	AppID     string
	AppSecret string
	Email     string
	CompanyID string
	Password  string
}

type tokenResponse struct {
	envelope
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// ObtainToken exchanges account credentials for a bearer token. The password
// is sent as its sha256 hex digest, never in the clear.
func (c *Client) ObtainToken(ctx context.Context, creds Credentials) (string, error) {
	if creds.AppID == "" || creds.AppSecret == "" {
		return "", errors.New("deyecloud: missing app credentials")
	}
	sum := sha256.Sum256([]byte(creds.Password))
	body := map[string]any{
		"appSecret": creds.AppSecret,
		"email":     creds.Email,
		"companyId": creds.CompanyID,
		"password":  hex.EncodeToString(sum[:]),
	}
	path := "/account/token?appId=" + url.QueryEscape(creds.AppID)
	var resp tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	if err := c.checkEnvelope("/account/token", resp.envelope); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &APIError{Endpoint: "/account/token", Message: "missing access token"}
	}
	return resp.AccessToken, nil
}

// TokenExpiry inspects the bearer token's exp claim without verifying the
// signature. The vendor signs its tokens with an undisclosed key; the claim
// is only used to warn before a scheduled run starts with a stale token.
func TokenExpiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, errors.New("deyecloud: empty token")
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("deyecloud: token has no expiry claim")
	}
	return exp.Time, nil
}
