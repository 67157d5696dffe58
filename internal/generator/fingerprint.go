package generator

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/nearyou-pipeline/internal/domain"
)

const ageBucketSize = 5

// Fingerprint derives the cache key material for a (profile, shop)
// pair. Ages collapse into five-year buckets and interests are order
// insensitive so equivalent requests share one cache entry.
func Fingerprint(profile *domain.UserProfile, shop *domain.Shop) string {
	lo := (int(profile.Age) / ageBucketSize) * ageBucketSize

	parts := strings.Split(profile.Interests, ",")
	interests := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			interests = append(interests, p)
		}
	}
	sort.Strings(interests)

	key := fmt.Sprintf("%d-%d:%s:%s:%s:%s",
		lo, lo+ageBucketSize-1,
		strings.ToLower(profile.Profession),
		strings.Join(interests, ","),
		strings.ToLower(shop.ShopName),
		strings.ToLower(shop.Category),
	)

	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
