// Package cache holds the audit report caches used by the placement service.
package cache

const defaultKeyPrefix = "farmtrack:placement:audit:"

func scopeKey(activeOnly bool) string {
	if activeOnly {
		return "active"
	}
	return "all"
}
