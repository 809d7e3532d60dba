package utilities

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// ErrInvalidID is returned when a string is not a snowflake id.
var ErrInvalidID = errors.New("invalid id")

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake ids from a single node. A node keeps
// sequence state, so one generator must be shared by every caller in the
// process.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator builds a generator for nodeID. If the node cannot be
// initialized the generator falls back to KSUID strings so ids are still unique.
func NewIDGenerator(nodeID int64) *IDGenerator {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &IDGenerator{}
	}
	return &IDGenerator{node: node}
}

// NewID returns a new id string.
func (g *IDGenerator) NewID() string {
	if g == nil || g.node == nil {
		return NewKSUID()
	}
	return g.node.Generate().String()
}

// ParseID checks that s is a snowflake id and returns it in canonical form.
func ParseID(s string) (string, error) {
	id, err := snowflake.ParseString(s)
	if err != nil || id <= 0 {
		return "", ErrInvalidID
	}
	return id.String(), nil
}
