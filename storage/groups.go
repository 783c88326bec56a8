package storage

import (
	"context"
	"errors"
	"sort"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
	"github.com/AstrobaseTech/Astrobase-sub000/registry"
	"github.com/AstrobaseTech/Astrobase-sub000/scheme"
)

// Groups returns the read fallback order for op as seen by instance:
// one group per distinct priority in ascending order, then one
// singleton group per unprioritized backend in registration order.
func (e *Engine) Groups(instance string, op Op) [][]Registration {
	regs := e.applicable(instance, op)

	byPriority := map[int][]Registration{}
	var priorities []int
	var tail [][]Registration
	for _, r := range regs {
		if r.Priority == nil {
			tail = append(tail, []Registration{r})
			continue
		}
		p := *r.Priority
		if _, seen := byPriority[p]; !seen {
			priorities = append(priorities, p)
		}
		byPriority[p] = append(byPriority[p], r)
	}
	sort.Ints(priorities)

	out := make([][]Registration, 0, len(priorities)+len(tail))
	for _, p := range priorities {
		out = append(out, byPriority[p])
	}
	return append(out, tail...)
}

type readOutcome struct {
	res     Result
	ok      bool
	err     error
	backend string
}

// raceGroup queries every member of group concurrently and returns the
// first valid result. Once a winner is found the remaining calls are
// cancelled through their context and their results are discarded.
func (e *Engine) raceGroup(ctx context.Context, inst scheme.Instance, id cid.CID, group []Registration) (Result, bool, error) {
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan readOutcome, len(group))
	for _, r := range group {
		go func(r Registration) {
			results <- e.tryGet(gctx, inst, id, r)
		}(r)
	}

	for pending := len(group); pending > 0; pending-- {
		select {
		case o := <-results:
			if o.err != nil || o.ok {
				if pending > 1 {
					go e.discard(id, results, pending-1)
				}
				return o.res, o.ok, o.err
			}
		case <-ctx.Done():
			return Result{}, false, ctx.Err()
		}
	}
	return Result{}, false, nil
}

func (e *Engine) discard(id cid.CID, results <-chan readOutcome, n int) {
	for ; n > 0; n-- {
		o := <-results
		if o.ok {
			e.logger.Debug("discarding late read result", "backend", o.backend, "cid", id.String())
		}
	}
}

func (e *Engine) tryGet(ctx context.Context, inst scheme.Instance, id cid.CID, r Registration) readOutcome {
	data, err := call(ctx, r.Backend, OpGet, id, nil)
	if err != nil {
		if !IsNotFound(err) && !errors.Is(err, ErrUnsupported) && ctx.Err() == nil {
			e.report(&BackendError{Backend: r.Name, Op: OpGet, CID: id, Err: err})
		}
		return readOutcome{backend: r.Name}
	}
	if len(data) == 0 {
		return readOutcome{backend: r.Name}
	}
	v, ok, err := scheme.ValidateAndParse(ctx, inst, id, data)
	if err != nil {
		if registry.IsNotFound(err) && !errors.Is(err, scheme.ErrUnknownStrategy) {
			return readOutcome{err: err, backend: r.Name}
		}
		e.logger.Debug("scheme rejected backend content", "backend", r.Name, "cid", id.String(), "error", err)
		return readOutcome{backend: r.Name}
	}
	if !ok {
		e.logger.Debug("invalid content from backend", "backend", r.Name, "cid", id.String())
		return readOutcome{backend: r.Name}
	}
	return readOutcome{res: Result{Value: v, Data: data, Backend: r.Name}, ok: true, backend: r.Name}
}
