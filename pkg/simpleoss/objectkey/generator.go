package objectkey

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator creates object keys for direct uploads
type Generator interface {
	// GenerateKey returns a key relative to the adapter prefix
	GenerateKey(metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	// Prefix is the leading directory, e.g. "avatars"
	Prefix string
	// Suffix is the final segment, usually a file name or extension, e.g. "photo.jpg"
	Suffix string
	// OwnerID is mixed into deterministic keys
	OwnerID string
}

// ShardedGenerator produces random keys of the form
// {prefix}/{shard}/{id}/{suffix}, where shard is the first ShardLength
// hex characters of a random UUID and id is the rest.
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
	// NewID returns the UUID a key is derived from. Defaults to uuid.New.
	NewID func() uuid.UUID
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{
		ShardLength: 2,
		NewID:       uuid.New,
	}
}

func (g *ShardedGenerator) GenerateKey(metadata *KeyMetadata) string {
	newID := g.NewID
	if newID == nil {
		newID = uuid.New
	}
	id := strings.ReplaceAll(newID().String(), "-", "")
	return join(metadata, shard(id, g.ShardLength))
}

// HashedGenerator derives the key from the metadata and a seed, so the same
// input always yields the same key.
type HashedGenerator struct {
	ShardLength int
	Seed        string
}

func NewHashedGenerator(seed string) *HashedGenerator {
	return &HashedGenerator{
		ShardLength: 2,
		Seed:        seed,
	}
}

func (g *HashedGenerator) GenerateKey(metadata *KeyMetadata) string {
	var prefix, suffix, owner string
	if metadata != nil {
		prefix, suffix, owner = metadata.Prefix, metadata.Suffix, metadata.OwnerID
	}
	hash := sha256.Sum256([]byte(g.Seed + "\x00" + prefix + "\x00" + suffix + "\x00" + owner))
	hashStr := fmt.Sprintf("%x", hash)
	return join(metadata, shard(hashStr[:16], g.ShardLength))
}

// FuncGenerator allows callers to provide their own key generation function
type FuncGenerator func(metadata *KeyMetadata) string

func (f FuncGenerator) GenerateKey(metadata *KeyMetadata) string {
	return f(metadata)
}

func shard(id string, n int) []string {
	if n <= 0 {
		n = 2
	}
	if n >= len(id) {
		return []string{id}
	}
	return []string{id[:n], id[n:]}
}

func join(metadata *KeyMetadata, middle []string) string {
	parts := make([]string, 0, len(middle)+2)
	if metadata != nil {
		for _, seg := range strings.Split(metadata.Prefix, "/") {
			if seg = sanitizePathComponent(seg); seg != "" {
				parts = append(parts, seg)
			}
		}
	}
	parts = append(parts, middle...)
	if metadata != nil {
		if s := sanitizeFilename(strings.Trim(metadata.Suffix, "/")); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"#", "_",
	" ", "_",
)

func sanitizeFilename(filename string) string {
	return unsafeChars.Replace(filename)
}

func sanitizePathComponent(component string) string {
	component = strings.TrimSpace(component)
	if component == "." || component == ".." {
		return ""
	}
	return unsafeChars.Replace(component)
}

// NewRecommendedGenerator returns the generator used by the upload-url action
func NewRecommendedGenerator() Generator {
	return NewShardedGenerator()
}
