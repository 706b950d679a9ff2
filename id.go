package apigwmock

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// IDGenerator provides correlation IDs for outbound calls.
type IDGenerator interface {
	NewID() string
}

// ULIDGenerator generates lexically sortable, monotonic IDs.
type ULIDGenerator struct{}

func (ULIDGenerator) NewID() string {
	return ulid.Make().String()
}

// SequenceIDGenerator returns a fixed series of IDs, then repeats the last one.
// It exists for deterministic tests.
type SequenceIDGenerator struct {
	mu  sync.Mutex
	ids []string
	pos int
}

func NewSequenceIDGenerator(ids ...string) *SequenceIDGenerator {
	return &SequenceIDGenerator{ids: append([]string(nil), ids...)}
}

func (g *SequenceIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return ""
	}
	if g.pos >= len(g.ids) {
		return g.ids[len(g.ids)-1]
	}
	id := g.ids[g.pos]
	g.pos++
	return id
}
