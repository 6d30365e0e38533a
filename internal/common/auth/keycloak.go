// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"immigration-portal/internal/common/errors"
)

// KeycloakClient signs users in and manages their accounts in a Keycloak realm.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// User represents a user in Keycloak.
type User struct {
	ID            string       `json:"id,omitempty"`
	Email         string       `json:"email"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Username      string       `json:"username"`
	Enabled       bool         `json:"enabled"`
	EmailVerified bool         `json:"emailVerified"`
	Credentials   []Credential `json:"credentials,omitempty"`
}

// Credential is a password set at account creation.
type Credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
}

// UserInfo is the subset of the OpenID userinfo document the portal reads.
type UserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (k *KeycloakClient) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)
}

// ==========================
// Service Account Token
// ==========================

// adminToken fetches a service-account token with the client credentials flow
// and caches it until expiry.
func (k *KeycloakClient) adminToken(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.tokenExpiry.After(time.Now()) && k.accessToken != "" {
		return k.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	tokenResp, _, err := k.postToken(ctx, data)
	if err != nil {
		return "", errors.NewAuthServiceUnavailableError(err)
	}

	k.accessToken = tokenResp.AccessToken
	// Refresh a little early so a token never expires mid-request.
	k.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 10*time.Second)

	return k.accessToken, nil
}

func (k *KeycloakClient) postToken(ctx context.Context, data url.Values) (*TokenResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.tokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("keycloak token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tokenResp, resp.StatusCode, nil
}

// ==========================
// End-User Flows
// ==========================

// SignIn exchanges email and password for tokens using the password grant.
func (k *KeycloakClient) SignIn(ctx context.Context, email, password string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "password")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)
	data.Set("username", email)
	data.Set("password", password)
	data.Set("scope", "openid email profile")

	tokenResp, status, err := k.postToken(ctx, data)
	if err == nil {
		return tokenResp, nil
	}

	switch {
	case status == 0 || status == http.StatusOK || k.isTransientHTTPError(status):
		return nil, errors.NewAuthServiceUnavailableError(err)
	default:
		return nil, errors.NewAuthenticationError(err.Error())
	}
}

// UserInfo resolves the subject and profile behind an access token.
func (k *KeycloakClient) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	infoURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/userinfo", k.baseURL, k.realm)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		return nil, errors.NewAuthServiceUnavailableError(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAuthServiceUnavailableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if k.isTransientHTTPError(resp.StatusCode) {
			return nil, errors.NewAuthServiceUnavailableError(fmt.Errorf("userinfo status %d: %s", resp.StatusCode, string(body)))
		}
		return nil, errors.NewAuthenticationError(fmt.Sprintf("userinfo status %d: %s", resp.StatusCode, string(body)))
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.NewAuthServiceUnavailableError(fmt.Errorf("decode userinfo: %w", err))
	}
	return &info, nil
}

// Logout revokes a user's refresh token.
func (k *KeycloakClient) Logout(ctx context.Context, refreshToken string) error {
	logoutURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/logout", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, logoutURL, strings.NewReader(data.Encode()))
	if err != nil {
		return errors.NewAuthServiceUnavailableError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return errors.NewAuthServiceUnavailableError(err)
	}
	defer resp.Body.Close()

	// Keycloak returns 204 No Content on successful logout
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &errors.StandardError{
			Code:      errors.ErrCodeAuthServiceUnavailable,
			Message:   errors.MsgAuthServiceUnavailable,
			Details:   fmt.Sprintf("Status: %d, Body: %s", resp.StatusCode, string(body)),
			Retryable: k.isTransientHTTPError(resp.StatusCode),
			Timestamp: time.Now().UTC(),
		}
	}
	return nil
}

// ==========================
// Account Administration
// ==========================

// CreateUser registers an enabled account with a permanent password and
// returns its Keycloak ID.
func (k *KeycloakClient) CreateUser(ctx context.Context, email, password, fullName string) (string, error) {
	token, err := k.adminToken(ctx)
	if err != nil {
		return "", err
	}

	first, last := splitName(fullName)
	user := User{
		Email:     email,
		Username:  email,
		FirstName: first,
		LastName:  last,
		Enabled:   true,
		Credentials: []Credential{
			{Type: "password", Value: password, Temporary: false},
		},
	}

	jsonData, err := json.Marshal(user)
	if err != nil {
		return "", errors.NewSignUpFailedError("Failed to create account. Please try again.", err)
	}

	userURL := fmt.Sprintf("%s/admin/realms/%s/users", k.baseURL, k.realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, userURL, strings.NewReader(string(jsonData)))
	if err != nil {
		return "", errors.NewAuthServiceUnavailableError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", errors.NewAuthServiceUnavailableError(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusConflict:
		return "", errors.NewSignUpFailedError("An account with this email already exists.", fmt.Errorf("%s", string(body)))
	case k.isTransientHTTPError(resp.StatusCode):
		return "", errors.NewAuthServiceUnavailableError(fmt.Errorf("create user status %d: %s", resp.StatusCode, string(body)))
	default:
		return "", errors.NewSignUpFailedError("Failed to create account. Please try again.", fmt.Errorf("create user status %d: %s", resp.StatusCode, string(body)))
	}

	// The user ID is in the Location header.
	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.NewSignUpFailedError("Failed to create account. Please try again.", fmt.Errorf("missing Location header"))
	}
	parts := strings.Split(location, "/")
	return parts[len(parts)-1], nil
}

// DeleteUser deletes a user by their unique ID.
func (k *KeycloakClient) DeleteUser(ctx context.Context, userID string) error {
	token, err := k.adminToken(ctx)
	if err != nil {
		return err
	}

	userURL := fmt.Sprintf("%s/admin/realms/%s/users/%s", k.baseURL, k.realm, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, userURL, nil)
	if err != nil {
		return errors.NewAuthServiceUnavailableError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return errors.NewAuthServiceUnavailableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return &errors.StandardError{
			Code:      errors.ErrCodeAuthServiceUnavailable,
			Message:   errors.MsgAuthServiceUnavailable,
			Details:   fmt.Sprintf("delete user status %d: %s", resp.StatusCode, string(body)),
			Retryable: k.isTransientHTTPError(resp.StatusCode),
			Timestamp: time.Now().UTC(),
		}
	}
	return nil
}

// isTransientHTTPError returns true if the HTTP status code indicates a potentially transient error.
func (k *KeycloakClient) isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func splitName(fullName string) (string, string) {
	fields := strings.Fields(fullName)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
