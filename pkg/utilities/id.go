package utilities

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake ids for a single node. Safe for concurrent use.
type IDGenerator struct {
	once sync.Once
	node *snowflake.Node
	nid  int64
}

// NewIDGenerator returns a generator bound to nodeID. Node setup is deferred
// to the first call so an invalid node degrades to KSUIDs instead of failing startup.
func NewIDGenerator(nodeID int64) *IDGenerator {
	return &IDGenerator{nid: nodeID}
}

// NewID generates a snowflake id string. If the node cannot be initialized
// (node id out of range) it falls back to a KSUID string.
func (g *IDGenerator) NewID() string {
	g.once.Do(func() {
		node, err := snowflake.NewNode(g.nid)
		if err == nil {
			g.node = node
		}
	})
	if g.node == nil {
		return NewKSUID()
	}
	return g.node.Generate().String()
}
