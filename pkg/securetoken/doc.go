// Package securetoken generates and compares opaque security tokens such as
// CSRF tokens and session identifiers.
//
// Token material comes from crypto/rand (at least 16 bytes, 32 by default) and
// is encoded as unpadded base64url so it can travel in cookies, headers and
// form fields unchanged. Comparisons use crypto/subtle.
//
//	vault := securetoken.New()
//	tok, err := vault.Issue(time.Hour)
//	if err != nil {
//		return err
//	}
//	ok := securetoken.Equal(tok.Value, submitted)
package securetoken
