package wordpress

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"community-bot/internal/common/errors"
	httpclient "community-bot/internal/common/http"
	"community-bot/internal/membership"
)

const (
	subscriptionsPath    = "/wp-json/mlc/v1/subscriptions"
	shopSubscriptionPath = "/wp-json/wp/v2/shop_subscription/"

	subscriptionFields = "id,mlc_subscription_sku,mlc_subscription_name,customer_id,mlc_community_user_id,mlc_community_username,mlc_subscription_active"
)

// Client talks to the storefront's subscription endpoints. It implements
// membership.SubscriptionStore.
type Client struct {
	rest *httpclient.Client
}

var _ membership.SubscriptionStore = (*Client)(nil)

// NewClient builds a client for host (scheme and domain, no trailing
// slash). token is sent Base64-encoded as Basic credentials.
func NewClient(host, token string, timeout time.Duration, opts ...httpclient.Option) *Client {
	opts = append([]httpclient.Option{httpclient.WithBasicToken(token)}, opts...)
	return &Client{
		rest: httpclient.NewClient("wordpress", host, timeout, opts...),
	}
}

type subscriptionMeta struct {
	UserID   string `json:"mlc_community_user_id"`
	Username string `json:"mlc_community_username"`
}

type subscriptionUpdate struct {
	ID   int64            `json:"id"`
	Meta subscriptionMeta `json:"meta"`
}

func (c *Client) ActiveByKey(ctx context.Context, key string) ([]membership.Subscription, error) {
	return c.list(ctx, "subscriptions by key", url.Values{
		"key":     {key},
		"_fields": {subscriptionFields},
	})
}

func (c *Client) ActiveByCustomerID(ctx context.Context, customerID string) ([]membership.Subscription, error) {
	return c.list(ctx, "subscriptions by customer", url.Values{
		"customer_id": {customerID},
		"_fields":     {subscriptionFields},
	})
}

// AllByUserID includes inactive subscriptions.
func (c *Client) AllByUserID(ctx context.Context, userID string) ([]membership.Subscription, error) {
	return c.list(ctx, "subscriptions by user", url.Values{
		"active_only":           {"false"},
		"mlc_community_user_id": {userID},
		"_fields":               {subscriptionFields},
	})
}

func (c *Client) IDsByUserID(ctx context.Context, userID string) ([]int64, error) {
	subs, err := c.list(ctx, "subscription ids by user", url.Values{
		"active_only":           {"false"},
		"mlc_community_user_id": {userID},
		"_fields":               {"id"},
	})
	if err != nil {
		return nil, err
	}
	return membership.IDs(subs), nil
}

// UserIDBySubscriptionID reads the linked Discord user id from a single
// shop subscription. It returns "" when the subscription has no link.
func (c *Client) UserIDBySubscriptionID(ctx context.Context, subscriptionID string) (string, error) {
	var body struct {
		Meta struct {
			UserID string `json:"mlc_community_user_id"`
		} `json:"meta"`
	}

	err := c.rest.Do(ctx, httpclient.Request{
		Operation: "shop subscription",
		Method:    http.MethodGet,
		Path:      shopSubscriptionPath + url.PathEscape(subscriptionID),
		Query:     url.Values{"_fields": {"meta.mlc_community_user_id"}},
	}, &body)
	if err != nil {
		return "", errors.NewTransportError("wordpress", "GET shop subscription", err)
	}
	return body.Meta.UserID, nil
}

// LinkIdentity writes identity onto every subscription in ids with one PUT.
func (c *Client) LinkIdentity(ctx context.Context, ids []int64, identity membership.Identity) error {
	if len(ids) == 0 {
		return nil
	}

	updates := make([]subscriptionUpdate, len(ids))
	for i, id := range ids {
		updates[i] = subscriptionUpdate{
			ID: id,
			Meta: subscriptionMeta{
				UserID:   identity.UserID,
				Username: identity.Username,
			},
		}
	}

	err := c.rest.Do(ctx, httpclient.Request{
		Operation: "update subscriptions",
		Method:    http.MethodPut,
		Path:      subscriptionsPath,
		Body:      updates,
	}, nil)
	if err != nil {
		return errors.NewTransportError("wordpress", fmt.Sprintf("PUT %d subscriptions", len(ids)), err)
	}
	return nil
}

func (c *Client) list(ctx context.Context, operation string, query url.Values) ([]membership.Subscription, error) {
	var subs []membership.Subscription
	err := c.rest.Do(ctx, httpclient.Request{
		Operation: operation,
		Method:    http.MethodGet,
		Path:      subscriptionsPath,
		Query:     query,
	}, &subs)
	if err != nil {
		return nil, errors.NewTransportError("wordpress", "GET "+operation, err)
	}
	if subs == nil {
		subs = []membership.Subscription{}
	}
	return subs, nil
}
