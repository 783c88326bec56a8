package storage

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/AstrobaseTech/Astrobase-sub000/cid"
)

// broadcast runs op on every applicable backend and waits for all of
// them to settle. Individual failures are reported and never returned.
func (e *Engine) broadcast(ctx context.Context, instance string, op Op, id cid.CID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	regs := e.applicable(instance, op)
	if len(regs) == 0 {
		e.logger.Debug("no backends for operation", "op", string(op), "cid", id.String())
		return nil
	}

	var g errgroup.Group
	if e.cfg.WriteConcurrency > 0 {
		g.SetLimit(e.cfg.WriteConcurrency)
	}
	for _, r := range regs {
		g.Go(func() error {
			_, err := call(ctx, r.Backend, op, id, data)
			switch {
			case err == nil, errors.Is(err, ErrUnsupported):
			case op == OpDelete && IsNotFound(err):
			default:
				e.report(&BackendError{Backend: r.Name, Op: op, CID: id, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()
	return nil
}
