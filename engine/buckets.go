/*
buckets.go - Store-to-staffing-bucket classification

PURPOSE:
  The cross-store staffing rollup groups scheduled hours under location
  tier labels ("flagship", "mall", "outlet"). The primary source is an
  explicit bucket label stored per store; name-substring matching is kept
  only as a legacy fallback for stores migrated before labels existed.
  Stores matching neither count only in the grand total.
*/
package engine

import "strings"

// Known location tiers for the legacy name matcher.
const (
	BucketFlagship = "flagship"
	BucketMall     = "mall"
	BucketOutlet   = "outlet"
)

// legacy name fragments, lowercase. Fragile on purpose: stored labels win.
var legacyBucketFragments = []struct {
	fragment string
	label    string
}{
	{"flagship", BucketFlagship},
	{"galleria", BucketMall},
	{"mall", BucketMall},
	{"outlet", BucketOutlet},
}

// StoreBuckets builds a BucketFunc from stored labels with the legacy
// name matcher as fallback. Both maps key on store id; names holds display
// names for stores that predate stored labels.
func StoreBuckets(labels map[string]string, names map[string]string) BucketFunc {
	return func(storeID string) (string, bool) {
		if label := labels[storeID]; label != "" {
			return label, true
		}
		return LegacyBucketForName(names[storeID])
	}
}

// LegacyBucketForName classifies a store by display-name substring.
// Retained only as migration aid; see StoreBuckets.
func LegacyBucketForName(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, f := range legacyBucketFragments {
		if strings.Contains(lower, f.fragment) {
			return f.label, true
		}
	}
	return "", false
}
