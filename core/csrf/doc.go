// Package csrf issues and validates per-session anti-forgery tokens.
//
// A Guard stores one live token in anything implementing TokenHolder, which
// *session.Session does. Safe methods (GET, HEAD, OPTIONS) always pass.
// State-changing methods must submit the live token as a form field, a JSON
// body field or the X-CSRF-TOKEN header. With Rotate enabled the token is
// replaced after every successful validation, so a captured token is good
// for one submission only.
//
//	guard := csrf.New(csrf.DefaultConfig())
//	tok, err := guard.Issue(sess)
//	...
//	if err := guard.Validate(sess, r.Method, r.URL.Path, submitted); err != nil {
//		// 403
//	}
package csrf
