package domain

// AnonymityLevel grades how much of the caller a proxy reveals to the judge.
type AnonymityLevel string

const (
	AnonymityElite       AnonymityLevel = "elite"
	AnonymityAnonymous   AnonymityLevel = "anonymous"
	AnonymityTransparent AnonymityLevel = "transparent"
)

// ProbeTarget is one proxy address paired with the protocol it is probed over.
type ProbeTarget struct {
	Address  string
	Protocol Protocol
}

func (t ProbeTarget) URL() string {
	return t.Protocol.Scheme() + "://" + t.Address
}

// VerificationResult states that Proxy relays and hides the caller over Protocol.
// Only successful probes produce one.
type VerificationResult struct {
	Proxy     string         `json:"proxy"`
	Protocol  Protocol       `json:"protocol"`
	Anonymity AnonymityLevel `json:"anonymity,omitempty"`
}

func (r VerificationResult) URL() string {
	return ProbeTarget{Address: r.Proxy, Protocol: r.Protocol}.URL()
}

// Outcome is the verdict of a single probe. Reason is only informational and is
// set when Verified is false.
type Outcome struct {
	Verified  bool
	Anonymity AnonymityLevel
	Reason    error
}

func Verified(level AnonymityLevel) Outcome {
	return Outcome{Verified: true, Anonymity: level}
}

func Unverified(reason error) Outcome {
	return Outcome{Reason: reason}
}
