package cache

import (
	"fmt"
	"strings"

	"github.com/OneOfOne/xxhash"

	"github.com/sells-group/meetingintel/internal/fusion"
	"github.com/sells-group/meetingintel/internal/model"
)

// keyVersion changes whenever the cached brief shape changes.
const keyVersion = "v1"

// Digest hashes the normalized identity fields that determine a brief.
func Digest(id model.Identity) uint64 {
	h := xxhash.NewS64(0)
	for _, part := range []string{
		string(id.Mode),
		strings.ToLower(strings.TrimSpace(id.Email)),
		fusion.Fold(id.NameGuess),
		fusion.NormalizeCompany(id.Company),
		strings.ToLower(id.CompanyDomain),
		strings.ToLower(strings.TrimSuffix(strings.TrimSpace(id.SocialURL), "/")),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Key is the cache key for id.
func Key(id model.Identity) string {
	return fmt.Sprintf("brief:%s:%016x", keyVersion, Digest(id))
}

// InputHash is the run-log identifier for id. It never carries the input.
func InputHash(id model.Identity) string {
	return fmt.Sprintf("%016x", Digest(id))
}
