package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contractcontent"
)

// ContentHash is a SHA-256 digest rendered as 64 lowercase hex characters.
type ContentHash string

var hexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func (h ContentHash) String() string { return string(h) }

// IsValid reports whether h is a well-formed lowercase hex digest.
func (h ContentHash) IsValid() bool {
	return hexPattern.MatchString(string(h))
}

// Generate canonicalizes the content and digests it with SHA-256.
func Generate(content contractcontent.ContractContent) ContentHash {
	sum := sha256.Sum256([]byte(content.Canonical()))
	return ContentHash(hex.EncodeToString(sum[:]))
}

// Verify compares a freshly generated hash against the candidate,
// case-insensitively. Pure function, no I/O.
func Verify(content contractcontent.ContractContent, candidate ContentHash) bool {
	return strings.EqualFold(string(Generate(content)), string(candidate))
}

// Parse normalizes an incoming hash string to a ContentHash, lowering
// case. The empty string parses to an empty hash.
func Parse(raw string) ContentHash {
	return ContentHash(strings.ToLower(strings.TrimSpace(raw)))
}
