// Package token encodes the login credential bundle the game client carries
// between requests, and parses the pipe-delimited body the client posts to the
// dashboard.
//
// An encoded token is base64 over "key=value" pairs joined with "&". There is
// no escaping, signature or expiry: values containing "&" or "=" do not
// round-trip, and anyone holding a token can decode it and mint a new one.
package token
