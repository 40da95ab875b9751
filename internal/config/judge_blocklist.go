package config

import (
	"net/url"
	"strings"
	"sync/atomic"
)

// judgeBlocklistSet holds normalized judge hostnames that should never be contacted.
var judgeBlocklistSet atomic.Value

func init() {
	judgeBlocklistSet.Store(make(map[string]struct{}))
}

// NormalizeJudgeBlocklist trims, lowercases, and deduplicates host entries.
func NormalizeJudgeBlocklist(entries []string) []string {
	return normalizeHostEntries(entries)
}

// updateJudgeBlocklist refreshes the in-memory set from already normalized entries.
func updateJudgeBlocklist(hosts []string) {
	judgeBlocklistSet.Store(buildHostSet(hosts))
}

// IsJudgeBlocked reports whether the given URL or hostname matches the configured blocklist.
func IsJudgeBlocked(rawURL string) bool {
	return isURLBlocked(rawURL, judgeBlocklistSet.Load().(map[string]struct{}))
}

// FilterBlockedJudges splits urls into the ones that may be contacted and the blocked ones.
func FilterBlockedJudges(urls []string) (allowed, blocked []string) {
	blockedSet := judgeBlocklistSet.Load().(map[string]struct{})
	allowed = make([]string, 0, len(urls))
	for _, raw := range urls {
		if isURLBlocked(raw, blockedSet) {
			blocked = append(blocked, raw)
			continue
		}
		allowed = append(allowed, raw)
	}
	return allowed, blocked
}

func isURLBlocked(rawURL string, blockedSet map[string]struct{}) bool {
	if len(blockedSet) == 0 {
		return false
	}

	host := normalizeHostname(rawURL)
	for host != "" {
		if _, ok := blockedSet[host]; ok {
			return true
		}
		// Walk up to the parent domain so subdomains of a blocked host match too.
		_, parent, found := strings.Cut(host, ".")
		if !found {
			break
		}
		host = parent
	}

	return false
}

func buildHostSet(hosts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		set[host] = struct{}{}
	}
	return set
}

func normalizeHostEntries(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	normalized := make([]string, 0, len(entries))

	for _, raw := range entries {
		host := normalizeHostname(raw)
		if host == "" {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		normalized = append(normalized, host)
	}

	return normalized
}

func normalizeHostname(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	// Bare hostnames need a scheme before url.Parse puts them in Host.
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}

	return strings.Trim(strings.ToLower(parsed.Hostname()), ".")
}
