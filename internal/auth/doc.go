// Package auth implements the OAuth 2.0 authorization-code flow against the Spotify accounts service.
//
// # Flow
//
// A [Request] describes the authorize URL. An [Initiator] opens it in the browser (or prints it).
// A [Capturer] then obtains the authorization code by running its steps in order:
//   - [ListenerStep]: serves the redirect URI's host, port and path and reads the code from the first redirect
//   - [ManualStep]: asks the user to paste the URL the browser landed on
//
// The manual step only runs when the listener fails: a bind failure, a broken connection,
// a timeout or a provider error. A code received by the listener is never asked for again.
//
// # Token Exchange
//
// An [Exchanger] trades a [Grant] for a [TokenSet]. [InitialGrant] carries the authorization code and
// redirect URI; [RefreshGrant] carries a refresh token. Both are posted as a form together with the
// client credentials. Failures are reported by stage:
//   - [shared.ErrTransport] : the request never got a response
//   - [shared.HTTPStatusError] : the endpoint answered with a non-2xx status
//   - [shared.ErrMalformedTokenResponse] : the body was not a token response
//
// # Bearer Tokens
//
// [TokenSet.OAuth2] converts a token set into an [oauth2.Token] for the API client.
package auth
