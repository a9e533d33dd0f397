package identity

import "context"

type customerKey struct{}

// Customer carries raw identity fields of a logged-in user or an order's
// billing contact. Values are hashed when an event is built from them.
type Customer struct {
	Email       string `json:"email" form:"email"`
	Phone       string `json:"phone" form:"phone"`
	FirstName   string `json:"first_name" form:"first_name"`
	LastName    string `json:"last_name" form:"last_name"`
	City        string `json:"city" form:"city"`
	State       string `json:"state" form:"state"`
	Postcode    string `json:"postcode" form:"postcode"`
	Country     string `json:"country" form:"country"`
	Gender      string `json:"gender" form:"gender"`
	DateOfBirth string `json:"date_of_birth" form:"date_of_birth"`
	ExternalID  string `json:"external_id" form:"external_id"`
}

func WithCustomer(ctx context.Context, c *Customer) context.Context {
	return context.WithValue(ctx, customerKey{}, c)
}

func CustomerFromContext(ctx context.Context) (*Customer, bool) {
	value, ok := ctx.Value(customerKey{}).(*Customer)
	return value, ok
}
