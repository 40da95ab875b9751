package judges

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"

	"github.com/charmbracelet/log"

	"proxcheck/internal/batch"
	"proxcheck/internal/config"
	"proxcheck/internal/domain"
)

// DefaultJudges are public azenv style echo pages used when no judges are configured.
var DefaultJudges = []string{
	"http://proxyjudge.us",
	"http://azenv.net/",
	"http://httpheader.net/azenv.php",
	"http://mojeip.net.pl/asdfa/azenv.php",
}

// Set is the list of judges that answered the liveness check. It never changes
// after NewSet returns, so it can be shared by any number of probes.
type Set struct {
	judges []*domain.Judge
	client *http.Client
}

// NewSet keeps the candidate urls that currently answer a plain GET with 200.
// An empty candidate list falls back to DefaultJudges. Blocklisted and
// malformed urls are dropped before any request is made.
func NewSet(ctx context.Context, client *http.Client, urls []string) (*Set, error) {
	if client == nil {
		client = &http.Client{Timeout: config.GetConfig().JudgeTimeout()}
	}
	if len(urls) == 0 {
		urls = DefaultJudges
	}

	allowed, blocked := config.FilterBlockedJudges(urls)
	for _, raw := range blocked {
		log.Warn("Skipping blocked judge", "judge", raw)
	}

	candidates := make([]*domain.Judge, 0, len(allowed))
	for _, raw := range allowed {
		judge, err := domain.ParseJudge(raw)
		if err != nil {
			log.Warn("Skipping invalid judge", "judge", raw, "error", err)
			continue
		}
		candidates = append(candidates, judge)
	}

	alive, err := batch.Run(ctx, candidates, len(candidates), func(ctx context.Context, judge *domain.Judge) (bool, error) {
		return isAlive(ctx, client, judge), nil
	})
	if err != nil {
		return nil, fmt.Errorf("check judges: %w", err)
	}

	set := &Set{client: client}
	for i, ok := range alive {
		if ok {
			set.judges = append(set.judges, candidates[i])
		}
	}

	if len(set.judges) == 0 {
		return nil, fmt.Errorf("%w: 0 of %d candidates answered", ErrNoUsableJudges, len(urls))
	}

	log.Info("Judges ready", "usable", len(set.judges), "candidates", len(urls))
	return set, nil
}

func isAlive(ctx context.Context, client *http.Client, judge *domain.Judge) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, judge.GetFullString(), nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Debug("Judge unreachable", "judge", judge, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Debug("Judge returned non-200", "judge", judge, "status", resp.StatusCode)
		return false
	}
	return true
}

// Random picks a judge uniformly. Consecutive calls may return different judges.
func (s *Set) Random() *domain.Judge {
	return s.judges[rand.Intn(len(s.judges))]
}

func (s *Set) Judges() []*domain.Judge {
	out := make([]*domain.Judge, len(s.judges))
	copy(out, s.judges)
	return out
}

func (s *Set) Len() int {
	return len(s.judges)
}
