package graphsdk

import (
	"context"
	"errors"
	"net/url"
)

// ExchangeToken exchanges a still-valid token for a long-lived one. The
// platform decides the new lifetime (typically about 60 days).
func (c *Client) ExchangeToken(ctx context.Context, appID, appSecret, token string) (*TokenResponse, error) {
	query := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {appID},
		"client_secret":     {appSecret},
		"fb_exchange_token": {token},
	}

	var resp TokenResponse
	if err := c.get(ctx, "/oauth/access_token", query, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.New("exchange response has no access_token")
	}
	return &resp, nil
}

// DebugToken returns metadata about inputToken, authenticated with
// accessToken. A token may be used to debug itself.
func (c *Client) DebugToken(ctx context.Context, inputToken, accessToken string) (*DebugTokenData, error) {
	query := url.Values{
		"input_token":  {inputToken},
		"access_token": {accessToken},
	}

	var resp debugTokenResponse
	if err := c.get(ctx, "/debug_token", query, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
