package checker

// MaxResponseSize is the assumed size in bytes of one judge response.
const MaxResponseSize = 1536

// MaxConcurrentProbes is the worst case number of open probe connections: every
// running proxy fan-out may have protocolLimit probes in flight.
func MaxConcurrentProbes(proxyLimit, protocolLimit int) int {
	return proxyLimit * protocolLimit
}

// EstimateMaxBandwidth returns the expected peak download rate in bytes per
// second for the given limits.
func EstimateMaxBandwidth(proxyLimit, protocolLimit int) int {
	return MaxResponseSize * MaxConcurrentProbes(proxyLimit, protocolLimit)
}
