// Package graphsdk is a small client for the ad platform's Graph API token
// endpoints.
//
// It covers the two calls the credential lifecycle needs:
//
//   - ExchangeToken trades a valid short-lived user token for a long-lived
//     one (grant_type=fb_exchange_token).
//   - DebugToken reports validity, owning application, scopes and expiry of
//     any token.
//
// Basic usage:
//
//	client := graphsdk.NewClient(graphsdk.DefaultBaseURL, graphsdk.DefaultVersion)
//	resp, err := client.ExchangeToken(ctx, appID, appSecret, shortLived)
//	if err != nil {
//	    var apiErr *graphsdk.APIError
//	    if errors.As(err, &apiErr) {
//	        log.Printf("platform rejected exchange: %s (code %d)", apiErr.Message, apiErr.Code)
//	    }
//	}
//	info, err := client.DebugToken(ctx, resp.AccessToken, resp.AccessToken)
//
// The client performs no retries. Requests are paced by a client-side rate
// limiter shared by every call made through the same Client.
package graphsdk
