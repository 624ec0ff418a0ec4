package orderid

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MaxLength is the longest client order id the exchange accepts.
const MaxLength = 36

const (
	timeWidth = 8  // base36 unix millis, fits until 2059
	seqWidth  = 13 // base36 of max uint64
)

// Generator mints client order ids that are unique within the process.
//
// An id is prefix + node + time + sequence. The sequence is an atomic counter, so two
// calls never share a value even within the same millisecond. The node and the
// counter start are random per generator, which keeps restarts and parallel
// processes from replaying each other's ids.
type Generator struct {
	node string
	seq  atomic.Uint64
	now  func() time.Time
}

// NewGenerator seeds a generator from a random UUID.
func NewGenerator() *Generator {
	u := uuid.New()

	var start [8]byte
	copy(start[2:], u[10:16])

	g := &Generator{
		node: hex.EncodeToString(u[:2]),
		now:  time.Now,
	}
	g.seq.Store(binary.BigEndian.Uint64(start[:]))
	return g
}

// Next returns a fresh id for the category. Safe for concurrent use.
func (g *Generator) Next(c Category) string {
	seq := g.seq.Add(1)
	ts := strconv.FormatInt(g.now().UnixMilli(), 36)

	var b strings.Builder
	b.Grow(MaxLength)
	b.WriteString(c.Prefix())
	b.WriteString(g.node)
	b.WriteString(leftPad(ts, timeWidth))
	b.WriteString(leftPad(strconv.FormatUint(seq, 36), seqWidth))
	return b.String()
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// defaultGenerator is the process-wide generation state. It is seeded once when the
// package initializes and is owned by this package; callers reach it through Generate
// or an Authority built without WithGenerator.
var defaultGenerator = NewGenerator()

// Generate returns a new id from the process-wide generator.
func Generate(c Category) string {
	return defaultGenerator.Next(c)
}
