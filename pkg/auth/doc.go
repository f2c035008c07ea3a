// Package auth establishes who is asking. It verifies HTTP Basic credentials
// against a bcrypt user file and HS256 bearer tokens, stores the resulting
// Identity in the request context, and answers whether an identity owns a
// record.
package auth
