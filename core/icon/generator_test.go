package icon

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/trezcool/schooladmin/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu    sync.Mutex
	seq   Sequence
	err   error
	calls []string
}

func (src *fakeSource) AvailableIconSequence(_ context.Context, schoolID, studentName string) (Sequence, error) {
	src.mu.Lock()
	defer src.mu.Unlock()
	src.calls = append(src.calls, schoolID+"/"+studentName)
	return src.seq.Clone(), src.err
}

func (src *fakeSource) callCount() int {
	src.mu.Lock()
	defer src.mu.Unlock()
	return len(src.calls)
}

func TestGenerator_Generate(t *testing.T) {
	netErr := &core.NetworkError{Err: errors.New("connection refused")}

	tests := []struct {
		name       string
		schoolID   string
		student    string
		src        *fakeSource
		wantOrigin Origin
		wantSeq    Sequence
		wantCalls  []string
	}{
		{
			name:       "blank name makes no request",
			schoolID:   "s1",
			student:    "   ",
			src:        &fakeSource{seq: Sequence{5, 1, 19, 3}},
			wantOrigin: OriginNone,
		},
		{
			name:       "server order is kept",
			schoolID:   "s1",
			student:    "Amani",
			src:        &fakeSource{seq: Sequence{5, 1, 19, 3}},
			wantOrigin: OriginServer,
			wantSeq:    Sequence{5, 1, 19, 3},
			wantCalls:  []string{"s1/Amani"},
		},
		{
			name:       "name is trimmed",
			schoolID:   "s1",
			student:    "  Amani ",
			src:        &fakeSource{seq: Sequence{2, 4, 6, 8}},
			wantOrigin: OriginServer,
			wantSeq:    Sequence{2, 4, 6, 8},
			wantCalls:  []string{"s1/Amani"},
		},
		{
			name:       "network failure draws locally",
			schoolID:   "s1",
			student:    "Yuki",
			src:        &fakeSource{err: netErr},
			wantOrigin: OriginLocal,
			wantCalls:  []string{"s1/Yuki"},
		},
		{
			name:       "server error draws locally",
			schoolID:   "s1",
			student:    "Yuki",
			src:        &fakeSource{err: &core.APIError{Status: http.StatusInternalServerError}},
			wantOrigin: OriginLocal,
			wantCalls:  []string{"s1/Yuki"},
		},
		{
			name:       "malformed server sequence draws locally",
			schoolID:   "s1",
			student:    "Yuki",
			src:        &fakeSource{seq: Sequence{3, 3, 30, 1}},
			wantOrigin: OriginLocal,
			wantCalls:  []string{"s1/Yuki"},
		},
		{
			name:       "no school draws locally without request",
			student:    "Yuki",
			src:        &fakeSource{seq: Sequence{5, 1, 19, 3}},
			wantOrigin: OriginLocal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewGenerator(tt.src, GeneratorOptions{})
			res := gen.Generate(context.Background(), tt.schoolID, tt.student)

			assert.Equal(t, tt.wantOrigin, res.Origin)
			assert.Equal(t, tt.wantCalls, tt.src.calls)
			switch tt.wantOrigin {
			case OriginNone:
				assert.True(t, res.Sequence.Empty())
			case OriginServer:
				assert.Equal(t, tt.wantSeq, res.Sequence)
				assert.True(t, res.Unique())
			case OriginLocal:
				assert.NoError(t, res.Sequence.Validate())
				assert.False(t, res.Unique())
			}
		})
	}
}

func TestGenerator_localDrawUsesRandomness(t *testing.T) {
	oldIntn := intnFunc
	defer func() { intnFunc = oldIntn }()
	intnFunc = func(n int) int { return n - 1 }

	gen := NewGenerator(&fakeSource{err: &core.NetworkError{}}, GeneratorOptions{})
	res := gen.Generate(context.Background(), "s1", "Yuki")
	assert.Equal(t, Sequence{24, 23, 22, 21}, res.Sequence)
}

func TestGenerator_breaker(t *testing.T) {
	src := &fakeSource{err: &core.NetworkError{Err: errors.New("connection refused")}}
	gen := NewGenerator(src, GeneratorOptions{MaxFailures: 2, OpenTimeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res := gen.Generate(ctx, "s1", "Yuki")
		assert.Equal(t, OriginLocal, res.Origin)
	}
	assert.Equal(t, gobreaker.StateOpen, gen.State())
	assert.Equal(t, 2, src.callCount(), "open breaker must not call the backend")
}

func TestGenerator_clientErrorsDoNotTrip(t *testing.T) {
	src := &fakeSource{err: &core.APIError{Status: http.StatusForbidden}}
	gen := NewGenerator(src, GeneratorOptions{MaxFailures: 1})

	for i := 0; i < 3; i++ {
		gen.Generate(context.Background(), "s1", "Yuki")
	}
	assert.Equal(t, gobreaker.StateClosed, gen.State())
	assert.Equal(t, 3, src.callCount())
}

func TestGenerator_metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeSource{seq: Sequence{5, 1, 19, 3}}
	gen := NewGenerator(src, GeneratorOptions{Registerer: reg})
	ctx := context.Background()

	gen.Generate(ctx, "s1", "Amani")
	gen.Generate(ctx, "s1", "")
	src.err = &core.NetworkError{}
	gen.Generate(ctx, "s1", "Yuki")

	assert.Equal(t, 1.0, testutil.ToFloat64(gen.counter.WithLabelValues(string(OriginServer))))
	assert.Equal(t, 1.0, testutil.ToFloat64(gen.counter.WithLabelValues(string(OriginLocal))))

	// a second generator shares the registered counter
	other := NewGenerator(src, GeneratorOptions{Registerer: reg})
	other.Generate(ctx, "s1", "Yuki")
	count, err := testutil.GatherAndCount(reg, "schooladmin_icon_sequence_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2.0, testutil.ToFloat64(gen.counter.WithLabelValues(string(OriginLocal))))
}
