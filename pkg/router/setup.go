package router

import (
	"net/url"
	"slices"

	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/dispatcher"
	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/protocol"
)

// handleReady starts the setup pipeline: user files first, everything else
// once the surface reports them loaded
func (r *Router) handleReady() {
	if r.Phase() != AwaitingReady {
		r.logger.Info("surface reloaded, restarting setup", zap.Stringer("phase", r.Phase()))
	}
	r.phase.Store(int32(LoadingUserFiles))
	r.delegate.WillLoad()

	res := r.settings.Resources
	r.dispatcher.Send(protocol.LoadUserFiles(res.UserScript, res.UserCSS))
}

// handleLoadedUserFiles applies the top-level attributes, then the initial
// content, then every registered div, each step starting only after the
// previous one completed
func (r *Router) handleLoadedUserFiles() {
	if r.Phase() != LoadingUserFiles {
		r.logger.Warn("user files loaded out of order", zap.Stringer("phase", r.Phase()))
	}
	r.phase.Store(int32(LoadingContent))

	doc := r.settings.Document
	steps := []func() *dispatcher.Promise{
		func() *dispatcher.Promise {
			cmd, err := protocol.SetTopLevelAttributes(doc.Attributes)
			if err != nil {
				r.logger.Warn("skipping top-level attributes", zap.Error(err))
				return nil
			}
			return r.dispatcher.Async(cmd)
		},
	}
	if doc.Placeholder != "" {
		steps = append(steps, func() *dispatcher.Promise {
			return r.dispatcher.Async(protocol.Call(protocol.VerbSetPlaceholder, protocol.String(doc.Placeholder)))
		})
	}
	steps = append(steps,
		func() *dispatcher.Promise {
			return r.dispatcher.Async(protocol.Call(protocol.VerbSetHTML, protocol.String(doc.InitialHTML)))
		},
		func() *dispatcher.Promise {
			divs := r.registry.Divs()
			r.late = nil
			r.loaded = make(map[string]struct{}, len(divs))
			for _, div := range divs {
				r.loaded[div.ID] = struct{}{}
			}
			p := dispatcher.NewPromise()
			r.Materialize(divs, dispatcher.Completion(p.Resolve))
			return p
		},
	)

	dispatcher.Sequence(steps...).OnComplete(func(any, error) {
		r.phase.Store(int32(Ready))
		r.logger.Debug("surface ready for input")
		r.delegate.DidLoad()
		r.recomputeHeight(true)
		r.catchUp()
	})
}

// catchUp brings the surface in line with divs that changed after the
// pipeline took its registry snapshot
func (r *Router) catchUp() {
	late, loaded := r.late, r.loaded
	r.late, r.loaded = nil, nil
	if len(late) == 0 {
		return
	}

	var adds []models.Div
	var removals []string
	registered := make(map[string]bool, len(late))
	for _, div := range r.registry.Divs() {
		if _, ok := late[div.ID]; !ok {
			continue
		}
		registered[div.ID] = true
		if _, ok := loaded[div.ID]; ok {
			removals = append(removals, div.ID)
		}
		adds = append(adds, div)
	}
	for id := range late {
		if _, ok := loaded[id]; ok && !registered[id] {
			removals = append(removals, id)
		}
	}
	slices.Sort(removals)

	r.logger.Debug("materializing divs changed during setup",
		zap.Int("divs", len(adds)), zap.Int("removals", len(removals)))
	r.removeThen(removals, func() {
		r.Materialize(adds, nil)
	})
}

// markLate records a div changed while the surface is not ready for input
func (r *Router) markLate(id string) {
	if r.late == nil {
		r.late = make(map[string]struct{})
	}
	r.late[id] = struct{}{}
}

// PlaceDivs materializes divs that were just registered. Earlier copies of
// the ids in replaced are removed from the surface first and the add waits
// until every removal completed. Before the surface is ready the divs are
// left to the setup pipeline. Actor only.
func (r *Router) PlaceDivs(divs []models.Div, replaced []string, done dispatcher.Completion) {
	if r.Phase() != Ready {
		for _, div := range divs {
			r.markLate(div.ID)
		}
		if done != nil {
			done(len(divs), nil)
		}
		return
	}
	r.removeThen(replaced, func() {
		r.Materialize(divs, done)
	})
}

// DropDiv removes the div with id from the surface. Actor only.
func (r *Router) DropDiv(id string) {
	r.ForgetDynamicGroup(models.GroupID(id))
	if r.Phase() != Ready {
		r.markLate(id)
		return
	}
	if id != r.RootID() {
		r.dispatcher.Send(protocol.RemoveDiv(id))
	}
}

// DropDivs removes every div in ids from the surface in one bulk load.
// Actor only.
func (r *Router) DropDivs(ids []string, done dispatcher.Completion) {
	r.ForgetDynamicGroup(r.shownGroup)
	if r.Phase() != Ready {
		for _, id := range ids {
			r.markLate(id)
		}
		if done != nil {
			done(0, nil)
		}
		return
	}

	cmds := make([]protocol.Command, 0, len(ids))
	for _, id := range ids {
		if id == r.RootID() {
			continue
		}
		cmds = append(cmds, protocol.RemoveDiv(id))
	}
	r.dispatcher.Bulk(cmds, r.bulkMode, done)
}

// Touch marks a registered div whose buttons changed before the surface
// was ready, so the pipeline pushes its current state. Actor only.
func (r *Router) Touch(id string) {
	if r.Phase() != Ready {
		r.markLate(id)
	}
}

// removeThen issues removeDiv for every id and runs next once all of them
// completed, whatever their outcome
func (r *Router) removeThen(ids []string, next func()) {
	promises := make([]*dispatcher.Promise, 0, len(ids))
	for _, id := range ids {
		if id == r.RootID() {
			continue
		}
		promises = append(promises, r.dispatcher.Async(protocol.RemoveDiv(id)))
	}
	dispatcher.All(promises...).OnComplete(func(any, error) { next() })
}

// Materialize copies each div's resources into the work area and pushes the
// divs to the surface in one bulk load. The root region is the document
// itself and is never pushed.
func (r *Router) Materialize(divs []models.Div, done dispatcher.Completion) {
	cmds := make([]protocol.Command, 0, len(divs))
	for _, div := range divs {
		if div.ID == r.RootID() {
			continue
		}
		r.prepareResources(div)

		cmd, err := protocol.AddDiv(div)
		if err != nil {
			r.logger.Warn("skipping div", zap.String("div", div.ID), zap.Error(err))
			continue
		}
		cmds = append(cmds, cmd)
	}
	r.dispatcher.Bulk(cmds, r.bulkMode, done)
}

// prepareResources populates the work area for div. Failures leave the div
// with missing assets rather than stopping the load.
func (r *Router) prepareResources(div models.Div) {
	if r.work == nil || div.ResourceBase == "" {
		return
	}

	source := div.ResourceBase
	if u, err := url.Parse(source); err == nil && u.Scheme == "file" {
		source = u.Path
	}
	if err := r.work.Populate(source); err != nil {
		r.logger.Warn("resource population failed", zap.String("div", div.ID), zap.Error(err))
	}

	missing, err := r.work.Missing(div.Contents)
	if err != nil {
		r.logger.Warn("unreadable div contents", zap.String("div", div.ID), zap.Error(err))
		return
	}
	if len(missing) > 0 {
		r.logger.Warn("div references missing assets", zap.String("div", div.ID), zap.Strings("assets", missing))
	}
}
