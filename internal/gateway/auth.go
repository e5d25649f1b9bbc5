package gateway

import (
	"context"
	"net/http"

	"iotmon/internal/models"
)

type AuthAPI struct{ c *Client }

func (a *AuthAPI) Login(ctx context.Context, creds models.Credentials) (models.Token, error) {
	var tok models.Token
	err := a.c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/auth/login", Body: creds}, &tok)
	return tok, err
}

func (a *AuthAPI) Register(ctx context.Context, user models.Registration) (models.User, error) {
	var u models.User
	err := a.c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/auth/register", Body: user}, &u)
	return u, err
}

// GetProfile returns the user the current credential belongs to.
func (a *AuthAPI) GetProfile(ctx context.Context) (models.User, error) {
	var u models.User
	err := a.c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/auth/me"}, &u)
	return u, err
}
