package presigned

import "time"

// Option is a functional option for configuring a Signer
type Option func(*Signer)

// WithCredentials sets the access key pair used for signing
func WithCredentials(accessKeyID, accessKeySecret string) Option {
	return func(s *Signer) {
		s.accessKeyID = accessKeyID
		s.secretKey = []byte(accessKeySecret)
	}
}

// WithSecurityToken adds an STS security token to every signed URL
func WithSecurityToken(token string) Option {
	return func(s *Signer) {
		s.securityToken = token
	}
}

// WithDefaultExpiration sets the expiration used when none is given.
// Default is 1 hour.
func WithDefaultExpiration(duration time.Duration) Option {
	return func(s *Signer) {
		s.defaultExpiration = duration
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}
