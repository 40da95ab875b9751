package config

import "time"

const (
	defaultProbeTimeout = 5 * time.Second
	defaultJudgeTimeout = 10 * time.Second

	DefaultProxyLimit    = 1000
	DefaultProtocolLimit = 3
)

// SecondsToDuration converts a configured number of seconds, falling back when unset.
func SecondsToDuration(seconds uint32, fallback time.Duration) time.Duration {
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func (c Config) ProbeTimeout() time.Duration {
	return SecondsToDuration(c.Checker.Timeout, defaultProbeTimeout)
}

func (c Config) JudgeTimeout() time.Duration {
	return SecondsToDuration(c.Checker.JudgesTimeout, defaultJudgeTimeout)
}

func (c Config) ProxyLimit() int {
	if c.Checker.ProxyLimit == 0 {
		return DefaultProxyLimit
	}
	return int(c.Checker.ProxyLimit)
}

func (c Config) ProtocolLimit() int {
	if c.Checker.ProtocolLimit == 0 {
		return DefaultProtocolLimit
	}
	return int(c.Checker.ProtocolLimit)
}
