package trace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	a := Generate()
	b := Generate()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "trc_"))
}

func TestInstallAndFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FromContext(ctx), "uninitialized scope reads empty")

	ctx, installed := Install(ctx, "trc_fixed")
	assert.Equal(t, "trc_fixed", installed)
	assert.Equal(t, "trc_fixed", FromContext(ctx))
}

func TestInstallGeneratesWhenAbsent(t *testing.T) {
	ctx, installed := Install(context.Background(), "")
	assert.NotEmpty(t, installed)
	assert.Equal(t, installed, FromContext(ctx))
}

func TestInstallDoesNotMutateParent(t *testing.T) {
	parent, _ := Install(context.Background(), "trc_parent")
	child, _ := Install(parent, "trc_child")

	assert.Equal(t, "trc_parent", FromContext(parent))
	assert.Equal(t, "trc_child", FromContext(child))
}

func TestConcurrentScopesAreIsolated(t *testing.T) {
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, installed := Install(context.Background(), "")
			for j := 0; j < 100; j++ {
				if got := FromContext(ctx); got != installed {
					t.Errorf("scope observed foreign trace id: %s != %s", got, installed)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestGoPropagatesAcrossBoundary(t *testing.T) {
	parent, installed := Install(context.Background(), "")

	done := make(chan string, 1)
	Go(parent, func(ctx context.Context) {
		done <- FromContext(ctx)
	})

	assert.Equal(t, installed, <-done)
}

func TestGoDetachesCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	parent, _ = Install(parent, "trc_x")
	cancel()

	done := make(chan error, 1)
	Go(parent, func(ctx context.Context) {
		done <- ctx.Err()
	})

	assert.NoError(t, <-done, "handed-off work must not inherit cancellation")
}

func TestMiddlewareGeneratesAndEchoes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())

	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(Header))
}

func TestMiddlewareHonorsIncomingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())

	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, "trc_incoming")
	router.ServeHTTP(w, req)

	assert.Equal(t, "trc_incoming", seen)
	assert.Equal(t, "trc_incoming", w.Header().Get(Header))
}

type recordingEmitter struct {
	mu     sync.Mutex
	infos  []string
	errors []string
	traces []string
}

func (r *recordingEmitter) Info(ctx context.Context, system, details string, locals map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, details)
	r.traces = append(r.traces, FromContext(ctx))
}

func (r *recordingEmitter) Error(ctx context.Context, system, details string, locals map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, details)
	r.traces = append(r.traces, FromContext(ctx))
}

func TestWrapSuccess(t *testing.T) {
	emitter := &recordingEmitter{}

	task := Wrap("worker", "rebuild-index", emitter, func(ctx context.Context) error {
		assert.NotEmpty(t, FromContext(ctx))
		return nil
	})

	require.NoError(t, task(context.Background()))
	require.Len(t, emitter.infos, 2)
	assert.Contains(t, emitter.infos[0], "task started")
	assert.Contains(t, emitter.infos[1], "task completed")
	assert.Empty(t, emitter.errors)

	// Both lifecycle events share one trace id
	assert.Equal(t, emitter.traces[0], emitter.traces[1])
}

func TestWrapError(t *testing.T) {
	emitter := &recordingEmitter{}
	boom := errors.New("boom")

	task := Wrap("worker", "rebuild-index", emitter, func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, task(context.Background()), boom)
	require.Len(t, emitter.errors, 1)
	assert.Contains(t, emitter.errors[0], "boom")
}

func TestWrapKeepsProvidedTraceID(t *testing.T) {
	emitter := &recordingEmitter{}

	ctx, _ := Install(context.Background(), "trc_handoff")
	task := Wrap("worker", "job", emitter, func(ctx context.Context) error {
		assert.Equal(t, "trc_handoff", FromContext(ctx))
		return nil
	})

	require.NoError(t, task(ctx))
	assert.Equal(t, "trc_handoff", emitter.traces[0])
}
