package apisvc

import (
	"context"
	"net/http"
	"net/url"

	"github.com/trezcool/schooladmin/core/school"
)

var _ school.Backend = (*Client)(nil)

func (c *Client) auth(ctx context.Context, endpoint string, payload url.Values) (school.AuthResult, error) {
	body, err := c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, path: endpoint, form: payload})
	if err != nil {
		return school.AuthResult{}, err
	}
	var res school.AuthResult
	err = decodeOne(body, "", &res)
	return res, err
}

func (c *Client) SignIn(ctx context.Context, payload url.Values) (school.AuthResult, error) {
	return c.auth(ctx, "/api/auth/school-admin/signin", payload)
}

func (c *Client) SignUp(ctx context.Context, payload url.Values) (school.AuthResult, error) {
	return c.auth(ctx, "/api/auth/school-admin/signup", payload)
}

func (c *Client) AcceptInvitation(ctx context.Context, payload url.Values) (school.AuthResult, error) {
	return c.auth(ctx, "/api/auth/invitations/accept", payload)
}

func (c *Client) RequestPasswordReset(ctx context.Context, payload url.Values) (school.Ack, error) {
	const endpoint = "/api/auth/password-reset-request"
	body, err := c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, path: endpoint, form: payload})
	if err != nil {
		return school.Ack{}, err
	}
	var ack school.Ack
	err = decodeOne(body, "", &ack)
	return ack, err
}

// SchoolRoles lists the schools of the signed-in admin. The backend answers either
// {"roles": [...]} or a bare list.
func (c *Client) SchoolRoles(ctx context.Context) ([]school.SchoolRole, error) {
	const endpoint = "/api/auth/school-admin/roles"
	body, err := c.do(ctx, request{method: http.MethodGet, endpoint: endpoint, path: endpoint})
	if err != nil {
		return nil, err
	}
	var roles []school.SchoolRole
	err = decodeList(body, "roles", &roles)
	return roles, err
}
