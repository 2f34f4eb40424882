// Package chambers is where opinions are drafted: it turns one bench
// seat's view of the evidence into a schema-conformant opinion, no
// matter how unreliable the generator behind it.
package chambers

import (
	"context"
	"errors"
	"strings"

	"github.com/dpopsuev/tribunal/internal/court"
	"github.com/dpopsuev/tribunal/internal/rubric"
	"github.com/dpopsuev/tribunal/pkg/audit"
)

// Brief is everything a generator needs to argue one criterion from one
// seat: the persona arguing, the criterion under review, and the
// evidence in scope.
type Brief struct {
	Persona   court.Persona
	Criterion rubric.Criterion
	Evidence  []audit.Evidence
}

// Generator produces one raw opinion payload per brief. Implementations
// may be remote models, local heuristics, or test scripts; the adapter
// owns parsing, retries and degradation.
type Generator interface {
	Generate(ctx context.Context, b Brief) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, b Brief) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, b Brief) (string, error) {
	return f(ctx, b)
}

// ErrRateLimited marks a generator failure as rate-limit-class.
// Generators that cannot wrap the sentinel can rely on message
// sniffing in IsRateLimited.
var ErrRateLimited = errors.New("rate limited")

var rateLimitMarkers = []string{"429", "rate limit", "too many requests", "quota"}

// IsRateLimited reports whether err is rate-limit-class: either wraps
// ErrRateLimited or carries a recognizable provider message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
