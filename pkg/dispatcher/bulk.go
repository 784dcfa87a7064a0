package dispatcher

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/protocol"
)

// BulkMode picks what completion of a bulk load means
type BulkMode int

const (
	// Submitted issues every command without waiting and completes as soon
	// as the last one has been issued.
	Submitted BulkMode = iota
	// Sequenced issues each command only after the previous one completed
	// and completes when the last one has.
	Sequenced
)

func (m BulkMode) String() string {
	if m == Sequenced {
		return "sequenced"
	}
	return "submitted"
}

// ParseBulkMode maps a settings value to a BulkMode
func ParseBulkMode(name string) (BulkMode, error) {
	switch name {
	case "", "submitted":
		return Submitted, nil
	case "sequenced":
		return Sequenced, nil
	default:
		return Submitted, fmt.Errorf("unknown bulk mode %q", name)
	}
}

// Bulk issues cmds in order under mode and runs done once.
// In Submitted mode done receives nil; failures are only logged.
// In Sequenced mode done receives every failure joined, and a failure does
// not stop the remaining commands.
func (d *Dispatcher) Bulk(cmds []protocol.Command, mode BulkMode, done Completion) {
	d.logger.Debug("bulk issue", zap.Int("commands", len(cmds)), zap.Stringer("mode", mode))

	complete := func(err error) {
		if done == nil {
			return
		}
		d.exec.Post(func() { done(len(cmds), err) })
	}

	if mode == Submitted {
		for _, cmd := range cmds {
			d.Send(cmd)
		}
		complete(nil)
		return
	}

	var errs []error
	var next func(i int)
	next = func(i int) {
		if i == len(cmds) {
			complete(errors.Join(errs...))
			return
		}
		d.Call(cmds[i], func(_ any, err error) {
			if err != nil {
				errs = append(errs, err)
			}
			next(i + 1)
		})
	}
	next(0)
}

// Sequence runs steps one after another, each starting only once the
// previous promise has settled. It settles with the last step's result.
func Sequence(steps ...func() *Promise) *Promise {
	p := Resolved(nil, nil)
	for _, step := range steps {
		step := step
		p = p.Then(func(any, error) *Promise {
			return step()
		})
	}
	return p
}
