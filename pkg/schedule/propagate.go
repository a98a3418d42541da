package schedule

import (
	"log/slog"
	"time"
)

// Propagate runs the top-down property pass over the forest: parent links,
// default durations, timestamp normalization, due and priority inheritance
// and predecessor resolution. Keys must already be assigned (see Normalize).
func Propagate(f Forest, opts Options) {
	newPropagator(indexByKey(Flatten(f)), opts).walk(f, nil)
}

func newPropagator(index map[string]*Node, opts Options) *propagator {
	return &propagator{
		index: index,
		dur:   opts.defaultDuration(),
		loc:   opts.Location,
		log:   opts.logger(),
	}
}

type propagator struct {
	index map[string]*Node
	dur   time.Duration
	loc   *time.Location
	log   *slog.Logger
}

func (p *propagator) walk(nodes []*Node, parent *Node) {
	for _, n := range nodes {
		n.Parent = parent

		if n.Duration == nil {
			d := p.dur
			n.Duration = &d
		}

		n.Due = normalizeTime(n.Due, p.loc)
		n.Start = normalizeTime(n.Start, p.loc)
		n.Created = normalizeTime(n.Created, p.loc)
		n.Completion = normalizeTime(n.Completion, p.loc)
		n.ETAStart = normalizeTime(n.ETAStart, p.loc)
		n.ETA = normalizeTime(n.ETA, p.loc)

		if parent != nil && parent.Due != nil && (n.Due == nil || parent.Due.Before(*n.Due)) {
			n.Due = cloneTime(*parent.Due)
		}

		if parent != nil && parent.Priority != nil && (n.Priority == nil || *parent.Priority > *n.Priority) {
			v := *parent.Priority
			n.Priority = &v
		} else if n.Priority == nil {
			v := 0.0
			n.Priority = &v
		}

		n.PredecessorLinks = n.PredecessorLinks[:0]
		for _, key := range n.Predecessors {
			pred, ok := p.index[key]
			if !ok {
				p.log.Debug("unresolved predecessor", "task", n.Key, "predecessor", key)
				continue
			}
			n.PredecessorLinks = append(n.PredecessorLinks, pred)
		}

		p.walk(n.Children, n)
	}
}
