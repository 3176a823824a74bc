// Package simpleoss provides a filesystem-style adapter over an Aliyun OSS
// compatible object store.
//
// The Adapter composes a path Prefixer, the URL signing and domain
// classification logic, and a pluggable ObjectStore (see storage/aliyun,
// storage/s3 and storage/memory) behind the FilesystemAdapter contract.
// Named adapters are held by a Registry and handed to consumers such as the
// URL validation rules in package rules.
//
// Signed URLs
//
// SignURL turns a bucket-relative path into a time-limited signed URL. When
// given an absolute URL (for example one already rewritten to a CDN or
// upload host) the signature query parameters are merged onto that URL so
// the caller's host survives signing.
//
// Domains
//
// A URL can belong to one of four domain families: the configured CDN host,
// the configured upload host, the public bucket host
// ({bucket}.oss-{region}.aliyuncs.com) or the internal bucket host
// ({bucket}.oss-{region}-internal.aliyuncs.com). When two families share a
// host the first in that order wins.
package simpleoss
