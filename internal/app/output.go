package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"proxcheck/internal/domain"
	"proxcheck/internal/geolite"
)

type resultLine struct {
	URL       string                `json:"url"`
	Proxy     string                `json:"proxy"`
	Protocol  domain.Protocol       `json:"protocol"`
	Anonymity domain.AnonymityLevel `json:"anonymity,omitempty"`
	Country   string                `json:"country,omitempty"`
}

// writeResults prints one line per verified proxy: its url, or a JSON object
// when asJSON is set. locator may be nil.
func writeResults(w io.Writer, results []domain.VerificationResult, locator *geolite.Locator, asJSON bool) error {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)

	for _, result := range results {
		line := resultLine{
			URL:       result.URL(),
			Proxy:     result.Proxy,
			Protocol:  result.Protocol,
			Anonymity: result.Anonymity,
			Country:   locator.Country(result.Proxy),
		}

		var err error
		switch {
		case asJSON:
			err = enc.Encode(line)
		case line.Country != "":
			_, err = fmt.Fprintf(buf, "%s %s %s\n", line.URL, line.Anonymity, line.Country)
		default:
			_, err = fmt.Fprintf(buf, "%s %s\n", line.URL, line.Anonymity)
		}
		if err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	return buf.Flush()
}
