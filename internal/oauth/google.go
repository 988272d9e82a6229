package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo?access_token="

// Google exchanges OAuth callback codes against Google's endpoints and
// resolves the token to the user's profile.
type Google struct {
	config oauth2.Config
	client *http.Client
}

var _ Provider = (*Google)(nil)

func NewGoogle(clientID, clientSecret, callbackURL string) *Google {
	return &Google{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		client: &http.Client{Timeout: time.Second * 10},
	}
}

func (g *Google) AuthURL(state string) string {
	return g.config.AuthCodeURL(state)
}

func (g *Google) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL+token.AccessToken, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %d", ErrInvalidAssertion, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response, %w", err)
	}

	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}

	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode user info, %w", err)
	}

	if info.ID == "" || info.Email == "" {
		return nil, ErrInvalidAssertion
	}

	return &Identity{
		ExternalID:  info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
	}, nil
}
