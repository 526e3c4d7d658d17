package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jhoicas/orderflow-api/internal/application/ports"
)

var _ ports.UserVerifier = (*UserClient)(nil)

// UserClient cliente del servicio de usuarios.
type UserClient struct {
	c *Client
}

func NewUserClient(c *Client) *UserClient {
	return &UserClient{c: c}
}

// VerifyUser GET /users/{id}/verify. Un 404 u otro 4xx es usuario no válido; un error de
// transporte se propaga y nunca se interpreta como válido.
func (u *UserClient) VerifyUser(ctx context.Context, userID string) (bool, error) {
	res, err := u.c.Call(ctx, Request{Method: http.MethodGet, Path: "/users/" + url.PathEscape(userID) + "/verify"})
	if err != nil {
		return false, err
	}
	if !res.OK() {
		u.c.log.Debug().Str("user_id", userID).Int("status", res.StatusCode).Msg("usuario rechazado por el servicio")
		return false, nil
	}
	var body struct {
		Valid bool `json:"valid"`
	}
	if err := res.Decode(&body); err != nil {
		return false, err
	}
	return body.Valid, nil
}
