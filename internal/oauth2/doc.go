// Package oauth2 implements the OAuth 2.0 authorization-code flow for CRM
// portals that are connected as applications rather than webhooks.
//
// # Overview
//
// A Manager builds the portal consent URL, exchanges the returned code for an
// access/refresh token pair, and renews the pair with the refresh-token grant.
// Tokens are written through a narrow TokenWriter only after a grant succeeds,
// so a rejected or failed grant never leaves a half-updated record.
//
// # Expiry
//
// Tokens are treated as expired ExpiryMargin (5 minutes) before their
// recorded expiry, and a token with no recorded expiry is always treated as
// expired. Callers refresh synchronously before use and fall back to the
// stale token when the refresh fails.
//
// # State
//
// The state parameter is produced by a StateManager: an HS256 JWT carrying the
// connection id and a single-use nonce. Nonces live in a NonceStore, either
// MemoryNonceStore for a single instance or RedisNonceStore when several
// instances share the callback URL.
//
// # Usage
//
//	manager := oauth2.NewManager(client, store, cfg.BitrixOAuthRedirectURI,
//	    oauth2.WithLocker(locker),
//	    oauth2.WithTokenReader(store),
//	)
//	states := oauth2.NewStateManager(cfg.JWTSecret, cfg.OAuthStateTTL, oauth2.NewMemoryNonceStore())
//
//	state, err := states.Issue(ctx, conn.ID)
//	if err != nil {
//	    return err
//	}
//	http.Redirect(w, r, manager.BuildAuthorizationURL(conn, state), http.StatusFound)
//
//	// in the callback handler
//	id, err := states.Verify(ctx, r.URL.Query().Get("state"))
//	...
//	err = manager.ExchangeAuthorizationCode(ctx, conn, r.URL.Query().Get("code"))
//
// # Refresh serialization
//
// CRM refresh tokens rotate on every grant. WithLocker makes RefreshAccessToken
// hold a per-connection lock, and WithTokenReader makes it re-read the stored
// tokens once the lock is held. A caller that waited behind another refresh
// adopts the tokens that refresh stored and posts nothing.
package oauth2
