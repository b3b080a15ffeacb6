package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// stateTTL bounds how long a sign-in attempt may take.
const stateTTL = 10 * time.Minute

// OAuthProvider describes an external identity provider that speaks the
// authorization code flow and exposes a user info endpoint.
type OAuthProvider struct {
	Name         string   `yaml:"name"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"user_info_url"`
	Scopes       []string `yaml:"scopes"`
}

// OAuthFlow performs the redirect dance with a provider and maps the
// resulting identity onto a local user.
type OAuthFlow struct {
	Provider    OAuthProvider
	RedirectURL string
	Store       *Store
	Client      *http.Client

	lock   sync.Mutex
	states map[string]time.Time
}

// Redirect starts a sign-in attempt by sending the client to the provider's
// authorization page.
func (flow *OAuthFlow) Redirect(res http.ResponseWriter, req *http.Request) {
	state := uuid.NewString()
	flow.lock.Lock()
	if flow.states == nil {
		flow.states = map[string]time.Time{}
	}
	for s, deadline := range flow.states {
		if time.Now().After(deadline) {
			delete(flow.states, s)
		}
	}
	flow.states[state] = time.Now().Add(stateTTL)
	flow.lock.Unlock()

	query := url.Values{
		"response_type": {"code"},
		"client_id":     {flow.Provider.ClientID},
		"redirect_uri":  {flow.RedirectURL},
		"scope":         {strings.Join(flow.Provider.Scopes, " ")},
		"state":         {state},
	}
	http.Redirect(res, req, flow.Provider.AuthURL+"?"+query.Encode(), http.StatusFound)
}

// Callback completes a sign-in attempt. The state parameter must match one
// previously handed out by Redirect.
func (flow *OAuthFlow) Callback(req *http.Request) (User, error) {
	if errMsg := req.URL.Query().Get("error"); errMsg != "" {
		return User{}, fmt.Errorf("provider error: %s", errMsg)
	}
	state := req.URL.Query().Get("state")
	flow.lock.Lock()
	deadline, ok := flow.states[state]
	delete(flow.states, state)
	flow.lock.Unlock()
	if !ok || time.Now().After(deadline) {
		return User{}, ErrUnauthorized
	}

	code := req.URL.Query().Get("code")
	if code == "" {
		return User{}, fmt.Errorf("no authorization code in callback")
	}
	accessToken, err := flow.exchangeCode(req.Context(), code)
	if err != nil {
		return User{}, err
	}
	email, name, err := flow.userInfo(req.Context(), accessToken)
	if err != nil {
		return User{}, err
	}
	return flow.Store.EnsureUser(req.Context(), email, name)
}

func (flow *OAuthFlow) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {flow.Provider.ClientID},
		"client_secret": {flow.Provider.ClientSecret},
		"redirect_uri":  {flow.RedirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		flow.Provider.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	res, err := flow.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed with status %d", res.StatusCode)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("no access token in provider response")
	}
	return body.AccessToken, nil
}

func (flow *OAuthFlow) userInfo(ctx context.Context, accessToken string) (email, name string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, flow.Provider.UserInfoURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	res, err := flow.httpClient().Do(req)
	if err != nil {
		return "", "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("user info request failed with status %d", res.StatusCode)
	}
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", "", err
	}
	if body.Email == "" {
		return "", "", fmt.Errorf("provider did not disclose an email address")
	}
	return body.Email, body.Name, nil
}

func (flow *OAuthFlow) httpClient() *http.Client {
	if flow.Client != nil {
		return flow.Client
	}
	return http.DefaultClient
}
