package apisvc

import (
	"context"
	"net/http"

	"github.com/trezcool/schooladmin/core/school"
)

const paymentsEndpoint = "/api/schools/{id}/payments"

func (c *Client) Payments(ctx context.Context, schoolID string) ([]school.Payment, error) {
	body, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: paymentsEndpoint,
		path:     schoolPath(schoolID, "payments"),
	})
	if err != nil {
		return nil, err
	}
	var ps []school.Payment
	err = decodeList(body, "payments", &ps)
	return ps, err
}

func (c *Client) PaymentStatus(ctx context.Context, schoolID string) (school.PaymentStatus, error) {
	body, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: paymentsEndpoint + "/status",
		path:     schoolPath(schoolID, "payments", "status"),
	})
	if err != nil {
		return school.PaymentStatus{}, err
	}
	var ps school.PaymentStatus
	err = decodeOne(body, "", &ps)
	return ps, err
}

func (c *Client) CreatePayment(ctx context.Context, schoolID string, payment school.PaymentForm) (school.Payment, error) {
	body, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: paymentsEndpoint,
		path:     schoolPath(schoolID, "payments"),
		json:     payment,
	})
	if err != nil {
		return school.Payment{}, err
	}
	var p school.Payment
	err = decodeOne(body, "payment", &p)
	return p, err
}
