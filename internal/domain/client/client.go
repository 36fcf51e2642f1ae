package client

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a client identifier does not resolve.
var ErrNotFound = errors.New("client not found")

// Client is a customer that orders are placed for. Phone and Email are
// optional and empty when unknown.
type Client struct {
	ID        string
	LastName  string
	FirstName string
	Address   string
	Phone     string
	Email     string
}

// FullName returns "First Last".
func (c *Client) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Changes holds the optional fields of a client edit. Nil fields are left as
// they are.
type Changes struct {
	LastName  *string
	FirstName *string
	Address   *string
	Phone     *string
	Email     *string
}

// Apply copies the non-nil fields onto c. Empty names are ignored so a client
// never loses its name.
func (c *Client) Apply(ch Changes) {
	if ch.LastName != nil && *ch.LastName != "" {
		c.LastName = *ch.LastName
	}
	if ch.FirstName != nil && *ch.FirstName != "" {
		c.FirstName = *ch.FirstName
	}
	if ch.Address != nil {
		c.Address = *ch.Address
	}
	if ch.Phone != nil {
		c.Phone = *ch.Phone
	}
	if ch.Email != nil {
		c.Email = *ch.Email
	}
}

// Repository loads and stores the whole client collection.
type Repository interface {
	LoadAll(ctx context.Context) ([]Client, error)
	SaveAll(ctx context.Context, clients []Client) error
}
