package icon

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"github.com/trezcool/schooladmin/core"
)

// Source hands out passcodes guaranteed unique within a school.
type Source interface {
	AvailableIconSequence(ctx context.Context, schoolID, studentName string) (Sequence, error)
}

// Origin tells where a generated Sequence came from.
type Origin string

const (
	OriginNone   Origin = ""
	OriginServer Origin = "server"
	OriginLocal  Origin = "local"
)

type Result struct {
	Sequence Sequence
	Origin   Origin
}

// Unique reports whether the backend vouched for the Sequence being unused in the school.
func (r Result) Unique() bool { return r.Origin == OriginServer }

type (
	GeneratorOptions struct {
		Logger core.Logger

		// circuit breaker around the Source; zero values use the defaults
		MaxFailures uint32
		OpenTimeout time.Duration

		// Registerer receives the generator metrics; nil skips registration.
		Registerer prometheus.Registerer
	}

	Generator struct {
		src     Source
		logger  core.Logger
		breaker *gobreaker.CircuitBreaker
		counter *prometheus.CounterVec
	}
)

const (
	defaultMaxFailures = 3
	defaultOpenTimeout = 30 * time.Second
)

var errMalformedSequence = errors.New("backend returned a malformed icon sequence")

func NewGenerator(src Source, opts GeneratorOptions) *Generator {
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schooladmin",
		Name:      "icon_sequence_total",
		Help:      "Generated icon sequences by origin.",
	}, []string{"origin"})
	if opts.Registerer != nil {
		if err := opts.Registerer.Register(counter); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				counter = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				opts.Logger.Warn("registering icon metrics", err)
			}
		}
	}

	return &Generator{
		src:     src,
		logger:  opts.Logger,
		breaker: newBreaker("IconSequence", opts.MaxFailures, opts.OpenTimeout, opts.Logger),
		counter: counter,
	}
}

func newBreaker(name string, maxFailures uint32, timeout time.Duration, logger core.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// only an unreachable or broken backend trips the breaker
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if core.IsNetworkError(err) {
				return false
			}
			var apiErr *core.APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}
			return !errors.Is(err, errMalformedSequence)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker " + name + ": " + from.String() + " -> " + to.String())
		},
	})
}

// State of the breaker guarding the backend, for diagnostics.
func (g *Generator) State() gobreaker.State { return g.breaker.State() }

// Generate proposes a passcode for a new student named studentName.
//
// A blank name yields an empty Result and no request. Otherwise the backend is asked
// for a sequence unique within the school, and its order is kept as is. Any failure
// of that request is logged and recovered by a local draw, so Generate never fails.
func (g *Generator) Generate(ctx context.Context, schoolID, studentName string) Result {
	name := strings.TrimSpace(studentName)
	if name == "" {
		return Result{}
	}

	seq, err := g.fetch(ctx, schoolID, name)
	if err == nil {
		g.counter.WithLabelValues(string(OriginServer)).Inc()
		return Result{Sequence: seq, Origin: OriginServer}
	}

	g.logger.Warn("failed to generate icon sequence, drawing locally", err, map[string]interface{}{
		"school_id":    schoolID,
		"student_name": name,
	})
	g.counter.WithLabelValues(string(OriginLocal)).Inc()
	return Result{Sequence: DrawSequence(), Origin: OriginLocal}
}

func (g *Generator) fetch(ctx context.Context, schoolID, name string) (Sequence, error) {
	if g.src == nil {
		return nil, errors.New("no icon sequence source")
	}
	if schoolID == "" {
		return nil, core.ErrNoSchool
	}
	res, err := g.breaker.Execute(func() (interface{}, error) {
		seq, err := g.src.AvailableIconSequence(ctx, schoolID, name)
		if err != nil {
			return nil, err
		}
		if err := seq.Validate(); err != nil {
			return nil, errors.Wrapf(errMalformedSequence, "%v: %v", seq, err)
		}
		return seq, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(Sequence).Clone(), nil
}
