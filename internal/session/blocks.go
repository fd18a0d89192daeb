package session

import (
	"github.com/OCharnyshevich/amr-mesh/internal/mesh"
)

// blocks is the per-block storage behind the mesh callbacks. It hands out
// sequential handles and remembers which identifier each live handle holds.
type blocks struct {
	next    mesh.LocalID
	live    map[mesh.LocalID]mesh.GlobalID
	metrics *Metrics
}

func newBlocks(metrics *Metrics) *blocks {
	return &blocks{live: make(map[mesh.LocalID]mesh.GlobalID), metrics: metrics}
}

func (b *blocks) alloc(id mesh.GlobalID) mesh.LocalID {
	h := b.next
	b.next++
	b.live[h] = id
	return h
}

func (b *blocks) release(id mesh.GlobalID, h mesh.LocalID) bool {
	got, ok := b.live[h]
	if !ok || got != id {
		return false
	}
	delete(b.live, h)
	return true
}

func (b *blocks) CreateBlock(id mesh.GlobalID) mesh.LocalID {
	b.metrics.Callbacks.WithLabelValues("create").Inc()
	return b.alloc(id)
}

func (b *blocks) DeleteBlock(id mesh.GlobalID, h mesh.LocalID) bool {
	b.metrics.Callbacks.WithLabelValues("delete").Inc()
	return b.release(id, h)
}

func (b *blocks) RefineBlock(parent mesh.GlobalID, h mesh.LocalID, children [8]mesh.GlobalID) [8]mesh.LocalID {
	b.metrics.Callbacks.WithLabelValues("refine").Inc()
	var out [8]mesh.LocalID
	if !b.release(parent, h) {
		for n := range out {
			out[n] = mesh.InvalidLocalID
		}
		return out
	}
	for n, c := range children {
		out[n] = b.alloc(c)
	}
	return out
}

func (b *blocks) CoarsenBlock(siblings [8]mesh.GlobalID, handles [8]mesh.LocalID, parent mesh.GlobalID) mesh.LocalID {
	b.metrics.Callbacks.WithLabelValues("coarsen").Inc()
	for n := range siblings {
		if got, ok := b.live[handles[n]]; !ok || got != siblings[n] {
			return mesh.InvalidLocalID
		}
	}
	for _, h := range handles {
		delete(b.live, h)
	}
	return b.alloc(parent)
}
