// Package testkit provides deterministic helpers for testing mock API stacks:
// in-process synthesis, a manual clock and id generator, and a local gateway
// that answers requests the way the deployed mock integration does.
package testkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/config"
	"github.com/theory-cloud/apigwmock/pkg/synth"
	"github.com/theory-cloud/apigwmock/pkg/template"
)

// Env is a deterministic local test environment.
type Env struct {
	Clock *ManualClock
	IDs   *ManualIDGenerator
}

func New() *Env {
	return NewWithTime(time.Unix(0, 0).UTC())
}

func NewWithTime(now time.Time) *Env {
	return &Env{
		Clock: NewManualClock(now),
		IDs:   NewManualIDGenerator(),
	}
}

// SynthTemplate synthesizes plan (config.Default() when nil) in a temporary
// assembly directory and fails the test on error. The process environment is
// not consulted.
func SynthTemplate(t testing.TB, plan *config.Plan) *template.Template {
	t.Helper()
	res, err := synth.Synthesize(synth.Options{
		Plan:   plan,
		Outdir: t.TempDir(),
		Getenv: MapEnv(nil),
	})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	return res.Template
}

func DefaultTemplate(t testing.TB) *template.Template {
	t.Helper()
	return SynthTemplate(t, nil)
}

// MapEnv returns a getenv func backed by vars.
func MapEnv(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

// MustJSON marshals v or fails the test.
func MustJSON(t testing.TB, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	return b
}

// DecodeJSON unmarshals raw into a generic map or fails the test.
func DecodeJSON(t testing.TB, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	return out
}

// ManualClock is a deterministic, mutable clock for tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	out := c.now
	c.mu.Unlock()
	return out
}

// ManualIDGenerator is a deterministic, predictable ID generator for tests.
type ManualIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int64
	queue  []string
}

var _ apigwmock.IDGenerator = (*ManualIDGenerator)(nil)

func NewManualIDGenerator() *ManualIDGenerator {
	return &ManualIDGenerator{prefix: "test-id", next: 1}
}

func (g *ManualIDGenerator) Queue(ids ...string) {
	g.mu.Lock()
	g.queue = append(g.queue, ids...)
	g.mu.Unlock()
}

func (g *ManualIDGenerator) Reset() {
	g.mu.Lock()
	g.queue = nil
	g.next = 1
	g.mu.Unlock()
}

func (g *ManualIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.queue) > 0 {
		out := g.queue[0]
		g.queue = g.queue[1:]
		return out
	}

	out := fmt.Sprintf("%s-%s", g.prefix, strconv.FormatInt(g.next, 10))
	g.next++
	return out
}
