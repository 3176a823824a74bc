// Package presigned signs and verifies OSS V1 style query-string URLs.
//
// A signed URL carries three parameters (plus security-token for STS
// credentials):
//
//	OSSAccessKeyId=<id>&Expires=<unix seconds>&Signature=<base64 hmac-sha1>
//
// The signature covers the HTTP verb, Content-MD5, Content-Type, the expiry,
// every x-oss-* header and the /bucket/key resource, so a URL signed for a PUT
// with x-oss-forbid-overwrite only works when the client sends that header.
//
// # Signing
//
//	signer := presigned.New(presigned.WithCredentials(id, secret))
//	url, err := signer.SignURL("https://bucket.oss-cn-hangzhou.aliyuncs.com",
//	    http.MethodGet, "bucket", "docs/a.pdf", 15*time.Minute, nil)
//
// # Serving
//
// Handlers serve an ObjectStore on path-style routes behind
// ValidateMiddleware, which is how the memory store's signed URLs become
// fetchable in development:
//
//	r := chi.NewRouter()
//	presigned.NewHandlers(store, signer).Mount(r)
package presigned
