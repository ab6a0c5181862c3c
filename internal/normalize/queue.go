// Package normalize rewrites implicit graph features into explicit blocks
// before compilation.
package normalize

import (
	"context"
	"strconv"
	"strings"

	"github.com/specialistvlad/blockgrid/internal/ctxlog"
	"github.com/specialistvlad/blockgrid/internal/project"
)

// Defaults for synthetic queues.
const (
	DefaultVisibilityTimeout      = 300
	DefaultMessageRetentionPeriod = 1209600
	DefaultDelaySeconds           = 0
)

// QueueID is the id of the synthetic queue owned by a source block.
func QueueID(sourceBlockID string) string { return sourceBlockID + "_queue" }

// Queues replaces every queue-kind connection A -> B with A -> Q -> B, where
// Q is a synthetic queue block keyed by A's id. A source may own only one
// synthetic queue; later connections from the same source reuse it. The
// Q -> B edge stays queue-kind and carries the batch size override.
//
// Connections whose endpoints do not resolve are kept as they are. Queue-kind
// connections leaving a queue block are already delivered by that queue and
// are not rewritten again, which makes Queues idempotent. A block already
// holding the queue id is reused only when it is a queue with an input and an
// output connector; otherwise the synthetic queue gets the next free
// `{id}_queue_N` id. Inputs are never mutated.
func Queues(ctx context.Context, blocks []project.Block, connections []project.Connection) ([]project.Block, []project.Connection) {
	outBlocks := append([]project.Block(nil), blocks...)
	outConns := make([]project.Connection, 0, len(connections))

	index := project.Index(blocks)
	synthetic := make(map[string]*project.Queue)
	var replacements []project.Connection

	for _, c := range connections {
		if !c.IsQueue() {
			outConns = append(outConns, c)
			continue
		}
		source, okSource := index[c.FromBlockID]
		_, okTarget := index[c.ToBlockID]
		if !okSource || !okTarget {
			outConns = append(outConns, c)
			continue
		}
		if _, isQueue := source.(*project.Queue); isQueue {
			outConns = append(outConns, c)
			continue
		}

		queue, ok := synthetic[source.Common().ID]
		if !ok {
			queue = reusableQueue(ctx, index, source.Common().ID)
			if queue == nil {
				id := freeQueueID(index, source.Common().ID)
				queue = newQueue(id, source.Common(), c.Queue)
				index[id] = queue
				outBlocks = append(outBlocks, queue)
			}
			synthetic[source.Common().ID] = queue
		}

		replacements = append(replacements,
			project.Connection{
				ID:              c.ID + "_queue_in",
				FromBlockID:     c.FromBlockID,
				FromConnectorID: c.FromConnectorID,
				ToBlockID:       queue.ID,
				ToConnectorID:   queue.Inputs[0].ID,
				Kind:            project.ConnectionRegular,
			},
			project.Connection{
				ID:              c.ID + "_queue_out",
				FromBlockID:     queue.ID,
				FromConnectorID: queue.Outputs[0].ID,
				ToBlockID:       c.ToBlockID,
				ToConnectorID:   c.ToConnectorID,
				Kind:            project.ConnectionQueue,
				Queue:           &project.QueueOverrides{BatchSize: c.BatchSize()},
			},
		)
	}

	return outBlocks, append(outConns, replacements...)
}

// Project returns a normalized copy of p.
func Project(ctx context.Context, p *project.Project) *project.Project {
	blocks, conns := Queues(ctx, p.Blocks, p.Connections)
	return &project.Project{Settings: p.Settings, Blocks: blocks, Connections: conns}
}

// reusableQueue returns the block already holding the synthetic queue id of
// source when it can carry the rewritten connections.
func reusableQueue(ctx context.Context, index map[string]project.Block, source string) *project.Queue {
	id := QueueID(source)
	existing, found := index[id]
	if !found {
		return nil
	}
	q, isQueue := existing.(*project.Queue)
	if isQueue && len(q.Inputs) > 0 && len(q.Outputs) > 0 {
		return q
	}
	ctxlog.FromContext(ctx).Warn("Block id reserved for a synthetic queue is taken, using a fresh id.",
		"block", id, "kind", existing.Kind())
	return nil
}

func freeQueueID(index map[string]project.Block, source string) string {
	id := QueueID(source)
	for n := 2; ; n++ {
		if _, taken := index[id]; !taken {
			return id
		}
		id = QueueID(source) + "_" + strconv.Itoa(n)
	}
}

func newQueue(id string, source *project.Meta, o *project.QueueOverrides) *project.Queue {
	props := project.QueueProperties{
		VisibilityTimeout:      DefaultVisibilityTimeout,
		MessageRetentionPeriod: DefaultMessageRetentionPeriod,
		DelaySeconds:           DefaultDelaySeconds,
	}
	if o != nil {
		if o.Fifo != nil {
			props.Fifo = *o.Fifo
		}
		if o.VisibilityTimeout > 0 {
			props.VisibilityTimeout = o.VisibilityTimeout
		}
		if o.MessageRetentionPeriod > 0 {
			props.MessageRetentionPeriod = o.MessageRetentionPeriod
		}
		if o.DelaySeconds > 0 {
			props.DelaySeconds = o.DelaySeconds
		}
	}

	title := source.Title + " Queue"
	return &project.Queue{
		Meta: project.Meta{
			ID:       id,
			DeployID: source.DeployID + strings.TrimPrefix(id, source.ID),
			Title:    title,
			Inputs:   []project.Connector{{ID: id + "_input", Name: title + " Input"}},
			Outputs:  []project.Connector{{ID: id + "_output", Name: title + " Output"}},
		},
		Properties: props,
	}
}
