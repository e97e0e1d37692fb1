package apiclient

import (
	"context"
	"net/http"
)

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}

// Login authenticates with an email or username and stores the token pair on
// success.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResponse, error) {
	body := map[string]string{"password": password}
	if isEmail(identifier) {
		body["email"] = identifier
	} else {
		body["username"] = identifier
	}

	var resp LoginResponse
	if err := c.Do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}

	c.store.Save(Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	return &resp, nil
}

// Logout revokes the current refresh token server-side and clears the local
// session either way.
func (c *Client) Logout(ctx context.Context) error {
	session, held := c.store.Load()
	if !held {
		return nil
	}

	err := c.Do(ctx, http.MethodPost, "/api/auth/logout",
		map[string]string{"refresh_token": session.RefreshToken}, nil)
	c.store.Clear()
	return err
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.Do(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func isEmail(identifier string) bool {
	for _, r := range identifier {
		if r == '@' {
			return true
		}
	}
	return false
}
