package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultUserinfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultTokeninfoURL = "https://oauth2.googleapis.com/tokeninfo"
)

// GoogleVerifier handles both Google sign-in paths: the redirect-based
// OAuth code flow, and direct ID-token verification for clients using
// Google Identity Services on the front end.
type GoogleVerifier struct {
	oauth        *oauth2.Config
	clientID     string
	client       *http.Client
	userinfoURL  string
	tokeninfoURL string
	log          zerolog.Logger
}

func NewGoogleVerifier(clientID, clientSecret, redirectURL string, log zerolog.Logger) *GoogleVerifier {
	return &GoogleVerifier{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		clientID:     clientID,
		client:       &http.Client{Timeout: 10 * time.Second},
		userinfoURL:  defaultUserinfoURL,
		tokeninfoURL: defaultTokeninfoURL,
		log:          log.With().Str("component", "google_auth").Logger(),
	}
}

// AuthCodeURL returns the Google consent page URL for the code flow.
func (v *GoogleVerifier) AuthCodeURL(state string) string {
	return v.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode trades an authorization code for the user's identity.
func (v *GoogleVerifier) ExchangeCode(ctx context.Context, code string) (Principal, error) {
	token, err := v.oauth.Exchange(ctx, code)
	if err != nil {
		return Principal{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return v.fetchUserinfo(ctx, token.AccessToken)
}

func (v *GoogleVerifier) fetchUserinfo(ctx context.Context, accessToken string) (Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userinfoURL, nil)
	if err != nil {
		return Principal{}, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return Principal{}, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Principal{}, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		Sub     string `json:"sub"`
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Principal{}, fmt.Errorf("failed to parse userinfo response: %w", err)
	}

	return principalFromIdentity(subjectOf(info.Sub, info.ID), info.Email, info.Name, info.Picture)
}

// VerifyIDToken validates a Google ID token against the tokeninfo
// endpoint and checks it was issued for this application.
func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, idToken string) (Principal, error) {
	reqURL := v.tokeninfoURL + "?id_token=" + url.QueryEscape(idToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Principal{}, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Principal{}, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Principal{}, fmt.Errorf("token rejected by tokeninfo (status %d)", resp.StatusCode)
	}

	var info struct {
		Aud     string `json:"aud"`
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Principal{}, fmt.Errorf("failed to parse tokeninfo response: %w", err)
	}

	// The token must have been issued for this client, otherwise a
	// valid token from any Google app would grant access here.
	if info.Aud != v.clientID {
		v.log.Warn().Str("aud", info.Aud).Msg("ID token audience mismatch")
		return Principal{}, fmt.Errorf("ID token was not issued for this application")
	}

	return principalFromIdentity(info.Sub, info.Email, info.Name, info.Picture)
}

// subjectOf picks the stable Google account ID. Tokeninfo calls it
// "sub", the v2 userinfo endpoint still calls it "id".
func subjectOf(sub, id string) string {
	if sub != "" {
		return sub
	}
	return id
}

// principalFromIdentity keys the principal by the Google subject, so a
// user who changes their email address keeps their stored data.
func principalFromIdentity(subject, email, name, picture string) (Principal, error) {
	if subject == "" {
		return Principal{}, fmt.Errorf("identity is missing a subject")
	}
	if name == "" {
		name = email
	}
	return Principal{
		Key:     subject,
		Name:    name,
		Email:   email,
		Picture: picture,
	}, nil
}
