package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

const (
	githubWebURL = "https://github.com"
	githubAPIURL = "https://api.github.com"
)

type GitHubClient struct {
	http         *resty.Client
	clientID     string
	clientSecret string
	redirectURL  string
	webURL       string
	apiURL       string
}

func NewGitHubClient(clientID, clientSecret, redirectURL string) *GitHubClient {
	return &GitHubClient{
		http:         resty.New().SetTimeout(10 * time.Second).SetHeader("Accept", "application/json"),
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		webURL:       githubWebURL,
		apiURL:       githubAPIURL,
	}
}

func (g *GitHubClient) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", g.clientID)
	q.Set("redirect_uri", g.redirectURL)
	q.Set("scope", "read:user user:email")
	q.Set("state", state)
	return g.webURL + "/login/oauth/authorize?" + q.Encode()
}

type githubTokenResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (g *GitHubClient) Exchange(ctx context.Context, code string) (string, error) {
	var out githubTokenResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     g.clientID,
			"client_secret": g.clientSecret,
			"code":          code,
			"redirect_uri":  g.redirectURL,
		}).
		SetResult(&out).
		Post(g.webURL + "/login/oauth/access_token")
	if err != nil {
		return "", fmt.Errorf("github token exchange: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("github token exchange returned %d: %s", resp.StatusCode(), resp.String())
	}
	// GitHub reports a bad code with 200 and an error field
	if out.Error != "" || out.AccessToken == "" {
		return "", fmt.Errorf("%w: %s", app_errors.ErrOAuthExchange, out.ErrorDescription)
	}
	return out.AccessToken, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Profile loads the GitHub user and its primary verified email.
func (g *GitHubClient) Profile(ctx context.Context, accessToken string) (*models.GitHubProfile, error) {
	var user githubUser
	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&user).
		Get(g.apiURL + "/user")
	if err != nil {
		return nil, fmt.Errorf("github user: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: github user returned %d", app_errors.ErrOAuthExchange, resp.StatusCode())
	}

	var emails []githubEmail
	resp, err = g.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&emails).
		Get(g.apiURL + "/user/emails")
	if err != nil {
		return nil, fmt.Errorf("github emails: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: github emails returned %d", app_errors.ErrOAuthExchange, resp.StatusCode())
	}

	profile := &models.GitHubProfile{
		ID:        user.ID,
		Login:     user.Login,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			profile.Email = e.Email
			break
		}
	}
	return profile, nil
}
