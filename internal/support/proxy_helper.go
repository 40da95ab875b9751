package support

import (
	"net"
	"strconv"
	"strings"

	"proxcheck/internal/domain"
)

// ParseTextToProxies extracts host:port proxy addresses from text, one per
// line. Blank lines, '#' comments, a leading scheme and invalid ports are
// skipped; duplicates keep their first position.
func ParseTextToProxies(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")
	proxies := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, rest, found := strings.Cut(line, "://"); found {
			line = rest
		}
		line = strings.TrimSuffix(line, "/")

		host, portStr, err := net.SplitHostPort(line)
		if err != nil || host == "" {
			continue
		}

		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			continue
		}

		addr := net.JoinHostPort(host, strconv.Itoa(port))
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		proxies = append(proxies, addr)
	}

	return proxies
}

// GetAnonymityLevel grades a judge echo page. The page is transparent when it
// shows realAddr, anonymous when one of proxyHeaders is echoed back as a key,
// and elite otherwise.
func GetAnonymityLevel(html, realAddr string, proxyHeaders []string) domain.AnonymityLevel {
	if realAddr != "" && strings.Contains(html, realAddr) {
		return domain.AnonymityTransparent
	}

	headers := make(map[string]struct{}, len(proxyHeaders))
	for _, header := range proxyHeaders {
		headers[normalizeHeaderKey(header)] = struct{}{}
	}

	for _, line := range strings.Split(html, "\n") {
		key, _, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		// The first echoed line usually still carries the opening <pre> tag.
		if idx := strings.LastIndex(key, ">"); idx >= 0 {
			key = key[idx+1:]
		}
		if _, ok := headers[normalizeHeaderKey(key)]; ok {
			return domain.AnonymityAnonymous
		}
	}

	return domain.AnonymityElite
}

func normalizeHeaderKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"))
}
