package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluqqy/editbridge/pkg/actor"
	"github.com/pluqqy/editbridge/pkg/dispatcher"
	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/registry"
	"github.com/pluqqy/editbridge/pkg/router"
	"github.com/pluqqy/editbridge/pkg/selection"
)

// fakeSurface answers every script at once from a table keyed by verb
type fakeSurface struct {
	mu        sync.Mutex
	scripts   []string
	responses map[string]any
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{responses: map[string]any{protocol.VerbGetHeight: 100.0}}
}

func verbOf(script string) string {
	verb := strings.TrimPrefix(script, protocol.Namespace+".")
	if i := strings.IndexByte(verb, '('); i >= 0 {
		verb = verb[:i]
	}
	return verb
}

func (s *fakeSurface) Evaluate(script string, done func(any, error)) {
	s.mu.Lock()
	s.scripts = append(s.scripts, script)
	result := s.responses[verbOf(script)]
	s.mu.Unlock()
	done(result, nil)
}

func (s *fakeSurface) respond(verb string, result any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[verb] = result
}

func (s *fakeSurface) Verbs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	verbs := make([]string, len(s.scripts))
	for i, script := range s.scripts {
		verbs[i] = verbOf(script)
	}
	return verbs
}

func (s *fakeSurface) Scripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scripts...)
}

func (s *fakeSurface) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = nil
}

type memClipboard struct{ texts []string }

func (m *memClipboard) WriteText(text string) error {
	m.texts = append(m.texts, text)
	return nil
}

func newTestEditor(t *testing.T, opts ...Option) (*Editor, *fakeSurface) {
	t.Helper()
	surface := newFakeSurface()
	settings := models.DefaultSettings()
	settings.Resources.WorkRoot = t.TempDir()
	opts = append([]Option{
		WithExecutor(actor.Inline{}),
		WithSettings(settings),
		WithClipboard(&memClipboard{}),
	}, opts...)
	e := New(surface, opts...)
	t.Cleanup(e.Close)
	return e, surface
}

// selectWith makes the surface report snapshot as the current selection
func selectWith(e *Editor, surface *fakeSurface, snapshot string) {
	surface.respond(protocol.VerbGetSelectionState, snapshot)
	e.Receive("focus")
	e.Receive("selectionChange")
	surface.clear()
}

func makeReady(e *Editor, surface *fakeSurface) {
	e.Receive("ready")
	e.Receive("loadedUserFiles")
	surface.clear()
}

func TestGates(t *testing.T) {
	const (
		text  = `{"valid":true,"selection":"hello"}`
		caret = `{"valid":true}`
		link  = `{"valid":true,"href":"https://a"}`
		image = `{"valid":true,"src":"cat.png"}`
		table = `{"valid":true,"table":true}`
		style = `{"valid":true,"style":"P"}`
		none  = `{}`
	)

	tests := []struct {
		name    string
		op      func(e *Editor) error
		allow   []string
		deny    []string
		wantCmd string
	}{
		{"bold", (*Editor).ToggleBold, []string{caret, text, table}, []string{none, image}, "MU.toggleFormat('bold')"},
		{"code", (*Editor).ToggleCode, []string{text}, []string{none}, "MU.toggleFormat('code')"},
		{"style", func(e *Editor) error { return e.SetStyle(selection.StyleH2) }, []string{style}, []string{caret, none, table}, "MU.setStyle('H2')"},
		{"list", func(e *Editor) error { return e.ToggleList(selection.ListUL) }, []string{caret}, []string{table, image}, "MU.toggleListItem('UL')"},
		{"indent", (*Editor).Indent, []string{caret}, []string{table, none}, "MU.indent()"},
		{"outdent", (*Editor).Outdent, []string{caret}, []string{image}, "MU.outdent()"},
		{"insert link", func(e *Editor) error { return e.InsertLink("https://b") }, []string{text, link}, []string{caret, none}, "MU.insertLink('https://b')"},
		{"delete link", (*Editor).DeleteLink, []string{link}, []string{text}, "MU.deleteLink()"},
		{"insert image", func(e *Editor) error { return e.InsertImage("dog.png", "") }, []string{caret, table}, []string{image, none}, "MU.insertImage('dog.png', null)"},
		{"modify image", func(e *Editor) error { return e.ModifyImage("", "a cat", 50) }, []string{image}, []string{caret}, "MU.modifyImage(null, 'a cat', 50)"},
		{"insert table", func(e *Editor) error { return e.InsertTable(3, 4) }, []string{caret}, []string{image}, "MU.insertTable(3, 4)"},
		{"add row", func(e *Editor) error { return e.AddRow(After) }, []string{table}, []string{caret}, "MU.addRow('after')"},
		{"add col", func(e *Editor) error { return e.AddCol(Before) }, []string{table}, []string{caret}, "MU.addCol('before')"},
		{"add header", func(e *Editor) error { return e.AddHeader(true) }, []string{table}, []string{text}, "MU.addHeader(true)"},
		{"delete area", func(e *Editor) error { return e.DeleteTableArea(AreaCol) }, []string{table}, []string{caret}, "MU.deleteTableArea('col')"},
		{"border", func(e *Editor) error { return e.BorderTable(selection.BorderOuter) }, []string{table}, []string{caret}, "MU.borderTable('outer')"},
		{"undo", (*Editor).Undo, []string{none}, nil, "MU.undo()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, snapshot := range tt.allow {
				e, surface := newTestEditor(t)
				selectWith(e, surface, snapshot)

				require.NoError(t, tt.op(e), snapshot)
				scripts := surface.Scripts()
				require.NotEmpty(t, scripts)
				assert.Equal(t, tt.wantCmd, scripts[0])
				assert.Equal(t, protocol.VerbGetSelectionState, verbOf(scripts[len(scripts)-1]),
					"selection refreshed after edit")
			}
			for _, snapshot := range tt.deny {
				e, surface := newTestEditor(t)
				selectWith(e, surface, snapshot)

				err := tt.op(e)
				assert.ErrorIs(t, err, ErrNotAllowed, snapshot)
				assert.Empty(t, surface.Scripts())
			}
		})
	}
}

func TestSearchClosesEditing(t *testing.T) {
	e, surface := newTestEditor(t)
	selectWith(e, surface, `{"valid":true,"selection":"hello"}`)

	require.NoError(t, e.Search("hello", After))
	assert.Equal(t, []string{"MU.searchFor('hello', 'after')"}, surface.Scripts())
	e.Receive("activateSearch")
	surface.clear()

	for name, op := range map[string]func() error{
		"bold":   e.ToggleBold,
		"undo":   e.Undo,
		"cut":    e.Cut,
		"indent": e.Indent,
	} {
		assert.ErrorIs(t, op(), ErrNotAllowed, name)
	}
	assert.Empty(t, surface.Scripts())

	assert.NoError(t, e.Copy(), "copying does not edit")

	e.DeactivateSearch()
	e.Receive("deactivateSearch")
	assert.NoError(t, e.ToggleBold())
}

func TestInvalidArguments(t *testing.T) {
	e, surface := newTestEditor(t)
	selectWith(e, surface, `{"valid":true,"selection":"x","table":true,"style":"P"}`)

	assert.Error(t, e.ToggleFormat("blink"))
	assert.Error(t, e.SetStyle(selection.StyleMultiple))
	assert.Error(t, e.ToggleList(selection.ListUndefined))
	assert.Error(t, e.InsertLink(""))
	assert.Error(t, e.InsertImage("", "alt"))
	assert.Error(t, e.ModifyImage("a", "b", 0))
	assert.Error(t, e.InsertTable(0, 3))
	assert.Error(t, e.AddRow("sideways"))
	assert.Error(t, e.DeleteTableArea("cell"))
	assert.Error(t, e.Search("", After))
	assert.Empty(t, surface.Scripts())
}

func TestCopyAndCut(t *testing.T) {
	clip := &memClipboard{}
	e, surface := newTestEditor(t, WithClipboard(clip))
	selectWith(e, surface, `{"valid":true,"selection":"hello"}`)
	surface.respond(protocol.VerbCopySelection, "hello")
	surface.respond(protocol.VerbCutSelection, "hello")

	require.NoError(t, e.Copy())
	require.NoError(t, e.Cut())
	assert.Equal(t, []string{"hello", "hello"}, clip.texts)
	assert.Equal(t, []string{
		protocol.VerbCopySelection,
		protocol.VerbCutSelection,
		protocol.VerbGetSelectionState,
	}, surface.Verbs())

	selectWith(e, surface, `{"valid":true}`)
	assert.ErrorIs(t, e.Copy(), ErrNotAllowed)
}

func TestStructure(t *testing.T) {
	t.Run("divs registered before ready load with the pipeline", func(t *testing.T) {
		e, surface := newTestEditor(t)

		require.NoError(t, e.AddDiv(models.Div{ID: "a"}))
		assert.Empty(t, surface.Scripts())

		e.Receive("ready")
		e.Receive("loadedUserFiles")
		assert.Contains(t, surface.Verbs(), protocol.VerbAddDiv)
		assert.Equal(t, router.Ready, e.Router().Phase())
	})

	t.Run("replace and remove", func(t *testing.T) {
		e, surface := newTestEditor(t)
		makeReady(e, surface)

		require.NoError(t, e.AddDiv(models.Div{ID: "a", Contents: "one"}))
		require.NoError(t, e.AddDiv(models.Div{ID: "a", Contents: "two"}))
		assert.Equal(t, []string{
			protocol.VerbAddDiv,
			protocol.VerbRemoveDiv,
			protocol.VerbAddDiv,
		}, surface.Verbs())

		div, ok := e.Registry().Div("a")
		require.True(t, ok)
		assert.Equal(t, "two", div.Contents)
		assert.Equal(t, 1, e.Registry().Len())

		surface.clear()
		e.RemoveDiv("a")
		e.RemoveDiv("a")
		assert.Equal(t, []string{"MU.removeDiv('a')"}, surface.Scripts())
	})

	t.Run("invalid div", func(t *testing.T) {
		e, _ := newTestEditor(t)
		err := e.AddDiv(models.Div{ID: "has space"})
		assert.ErrorIs(t, err, registry.ErrInvalidDiv)
	})

	t.Run("buttons", func(t *testing.T) {
		e, surface := newTestEditor(t)
		makeReady(e, surface)

		require.NoError(t, e.AddDiv(models.Div{
			ID:          "static",
			ButtonGroup: models.NewButtonGroup("static", "tools", false),
		}))
		require.NoError(t, e.AddDiv(models.Div{
			ID:          "dyn",
			ButtonGroup: models.NewButtonGroup("dyn", "tools", true),
		}))
		surface.clear()

		require.NoError(t, e.AddButton("static", models.Button{ID: "s1", Label: "Save"}))
		assert.Equal(t, []string{"MU.addButton('s1', '', 'Save', 'static-buttons')"}, surface.Scripts())

		surface.clear()
		require.NoError(t, e.AddButton("dyn", models.Button{ID: "d1"}))
		assert.Empty(t, surface.Scripts(), "hidden dynamic group is not pushed")

		selectWith(e, surface, `{"valid":true,"divid":"dyn"}`)
		require.NoError(t, e.AddButton("dyn", models.Button{Label: "Generated"}))
		assert.Equal(t, []string{protocol.VerbAddButton}, surface.Verbs())

		_, ok := e.Registry().Button("d1")
		assert.True(t, ok)

		surface.clear()
		require.NoError(t, e.RemoveButton("s1"))
		assert.Equal(t, []string{"MU.removeButton('s1')"}, surface.Scripts())
		assert.Error(t, e.RemoveButton("s1"))
		assert.ErrorIs(t, e.AddButton("nope", models.Button{ID: "x"}), registry.ErrUnknownDiv)
	})

	t.Run("focus and scroll", func(t *testing.T) {
		e, surface := newTestEditor(t)
		require.NoError(t, e.AddDiv(models.Div{ID: "a", FocusID: "a-text"}))

		require.NoError(t, e.FocusOn("a"))
		require.NoError(t, e.ScrollIntoView("a"))
		require.NoError(t, e.FocusOn(models.RootDivID))
		assert.Equal(t, []string{
			"MU.focusOn('a-text')",
			"MU.scrollIntoView('a')",
			"MU.focusOn('editor')",
		}, surface.Scripts())

		assert.ErrorIs(t, e.FocusOn("ghost"), registry.ErrUnknownDiv)
	})
}

func TestBulkLoad(t *testing.T) {
	divs := []models.Div{{ID: "a"}, {ID: "b"}, {ID: "bad id"}, {ID: "c"}}

	for _, mode := range []string{models.BulkSubmitted, models.BulkSequenced} {
		t.Run(mode, func(t *testing.T) {
			settings := models.DefaultSettings()
			settings.Bridge.BulkMode = mode
			settings.Resources.WorkRoot = t.TempDir()
			e, surface := newTestEditor(t, WithSettings(settings))
			makeReady(e, surface)

			var count any
			err := e.LoadDivs(divs, func(result any, err error) {
				count = result
				assert.NoError(t, err)
			})
			assert.ErrorIs(t, err, registry.ErrInvalidDiv)
			assert.Equal(t, 3, count)
			assert.Equal(t, 3, e.Registry().Len())
			assert.Equal(t, []string{protocol.VerbAddDiv, protocol.VerbAddDiv, protocol.VerbAddDiv}, surface.Verbs())

			surface.clear()
			count = nil
			e.UnloadDivs(func(result any, err error) { count = result })
			assert.Equal(t, 3, count)
			assert.Equal(t, 0, e.Registry().Len())
			assert.Equal(t, []string{"MU.removeDiv('a')", "MU.removeDiv('b')", "MU.removeDiv('c')"}, surface.Scripts())
		})
	}

	t.Run("before ready only registers", func(t *testing.T) {
		e, surface := newTestEditor(t)
		var count any
		require.NoError(t, e.LoadDivs(divs[:2], func(result any, err error) { count = result }))
		assert.Equal(t, 2, count)
		assert.Empty(t, surface.Scripts())
	})
}

func TestDocument(t *testing.T) {
	e, surface := newTestEditor(t)
	surface.respond(protocol.VerbGetHTML, "<p>it's</p>")

	var got string
	e.GetHTML(func(markup string, err error) {
		require.NoError(t, err)
		got = markup
	})
	assert.Equal(t, "<p>it's</p>", got)

	e.SetHTML("<p>it's</p>", nil)
	e.SetPlaceholder("Say something")
	require.NoError(t, e.EmptyDocument())
	assert.Equal(t, []string{
		"MU.getHTML()",
		`MU.setHTML('<p>it\'s</p>')`,
		"MU.setPlaceholder('Say something')",
		"MU.emptyDocument()",
		"MU.getSelectionState()",
	}, surface.Scripts())
}

func TestWorkAreaLifecycle(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "user.js"), []byte("// user"), 0644))

	settings := models.DefaultSettings()
	settings.Resources.WorkRoot = t.TempDir()
	settings.Resources.SourceDir = src

	e := New(newFakeSurface(), WithExecutor(actor.Inline{}), WithSettings(settings), WithSessionID("s1"))
	work := e.WorkArea()
	require.NotNil(t, work)
	assert.Equal(t, "s1", work.SessionID())
	assert.True(t, work.Exists("user.js"))

	e.Close()
	_, err := os.Stat(work.Path())
	assert.True(t, os.IsNotExist(err))
	e.Close()
}

func TestReceiveOnQueue(t *testing.T) {
	recorder := &router.Recorder{}
	settings := models.DefaultSettings()
	settings.Resources.WorkRoot = t.TempDir()
	e := New(newFakeSurface(), WithDelegate(recorder), WithSettings(settings))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()

	require.True(t, e.Receive("focus"))
	require.True(t, e.Receive("input:comment1"))
	require.Eventually(t, func() bool {
		return len(recorder.Entries()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{router.HookFocusGained, router.HookInputChanged}, recorder.Hooks())
	assert.True(t, e.Router().HasFocus())

	e.Close()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.False(t, e.Receive("blur"))
}

func TestCommandTimeoutFromSettings(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Bridge.CommandTimeout = 10 * time.Millisecond
	settings.Resources.WorkRoot = t.TempDir()

	e := New(silentChannel{}, WithExecutor(actor.Inline{}), WithSettings(settings))
	defer e.Close()

	errc := make(chan error, 1)
	e.GetHTML(func(_ string, err error) { errc <- err })
	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, dispatcher.ErrTimeout))
	case <-time.After(time.Second):
		t.Fatal("command never timed out")
	}
}

type silentChannel struct{}

func (silentChannel) Evaluate(string, func(any, error)) {}

// holdingSurface answers like fakeSurface but keeps the results of one verb
// until release is called
type holdingSurface struct {
	*fakeSurface
	verb string
	held []func()
}

func (h *holdingSurface) Evaluate(script string, done func(any, error)) {
	if verbOf(script) != h.verb {
		h.fakeSurface.Evaluate(script, done)
		return
	}
	h.fakeSurface.Evaluate(script, func(result any, err error) {
		h.held = append(h.held, func() { done(result, err) })
	})
}

func (h *holdingSurface) release() {
	held := h.held
	h.held = nil
	for _, fn := range held {
		fn()
	}
}

func TestReplacementWaitsForRemoval(t *testing.T) {
	setup := func(t *testing.T) (*Editor, *holdingSurface) {
		h := &holdingSurface{fakeSurface: newFakeSurface(), verb: protocol.VerbRemoveDiv}
		settings := models.DefaultSettings()
		settings.Resources.WorkRoot = t.TempDir()
		e := New(h, WithExecutor(actor.Inline{}), WithSettings(settings), WithClipboard(&memClipboard{}))
		t.Cleanup(e.Close)

		makeReady(e, h.fakeSurface)
		require.NoError(t, e.AddDiv(models.Div{ID: "a", Contents: "one"}))
		h.clear()
		return e, h
	}

	t.Run("single div", func(t *testing.T) {
		e, h := setup(t)

		require.NoError(t, e.AddDiv(models.Div{ID: "a", Contents: "two"}))
		assert.Equal(t, []string{"MU.removeDiv('a')"}, h.Scripts(), "add waits for the removal")

		h.release()
		scripts := h.Scripts()
		require.Len(t, scripts, 2)
		assert.True(t, strings.HasPrefix(scripts[1], "MU.addDiv('a'"))
		assert.Contains(t, scripts[1], "'two'")
	})

	t.Run("bulk load", func(t *testing.T) {
		e, h := setup(t)

		var count any
		require.NoError(t, e.LoadDivs([]models.Div{{ID: "a", Contents: "two"}, {ID: "b"}},
			func(result any, err error) { count = result }))
		assert.Equal(t, []string{protocol.VerbRemoveDiv}, h.Verbs())
		assert.Nil(t, count)

		h.release()
		assert.Equal(t, []string{protocol.VerbRemoveDiv, protocol.VerbAddDiv, protocol.VerbAddDiv}, h.Verbs())
		assert.Equal(t, 2, count)
	})
}

// stepExecutor queues posted work until the test runs it
type stepExecutor struct {
	mu      sync.Mutex
	pending []func()
}

func (s *stepExecutor) Post(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, fn)
	return true
}

func (s *stepExecutor) step() bool {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return false
	}
	fn := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()
	fn()
	return true
}

func (s *stepExecutor) drain() {
	for s.step() {
	}
}

// In submitted mode the late change is handled after the surface is ready;
// in sequenced mode it lands while setup is still loading content.
func TestChangesDuringSetupReachTheSurface(t *testing.T) {
	for _, mode := range []string{models.BulkSubmitted, models.BulkSequenced} {
		start := func(t *testing.T) (*Editor, *fakeSurface, *stepExecutor) {
			exec := &stepExecutor{}
			settings := models.DefaultSettings()
			settings.Bridge.BulkMode = mode
			settings.Resources.WorkRoot = t.TempDir()
			e, surface := newTestEditor(t, WithExecutor(exec), WithSettings(settings))
			require.NoError(t, e.AddDiv(models.Div{ID: "early", Contents: "one"}))

			e.Receive("ready")
			e.Receive("loadedUserFiles")
			for !slices.Contains(surface.Verbs(), protocol.VerbAddDiv) {
				require.True(t, exec.step(), "setup never pushed the registered div")
			}
			require.Equal(t, router.LoadingContent, e.Router().Phase())
			surface.clear()
			return e, surface, exec
		}

		t.Run(mode+"/added div", func(t *testing.T) {
			e, surface, exec := start(t)

			require.NoError(t, e.AddDiv(models.Div{ID: "late"}))
			exec.drain()

			assert.Equal(t, router.Ready, e.Router().Phase())
			_, registered := e.Registry().Div("late")
			assert.True(t, registered)
			pushed := slices.ContainsFunc(surface.Scripts(), func(s string) bool {
				return strings.HasPrefix(s, "MU.addDiv('late'")
			})
			assert.True(t, pushed)
			assert.NotContains(t, surface.Verbs(), protocol.VerbRemoveDiv)
		})

		t.Run(mode+"/replaced div", func(t *testing.T) {
			e, surface, exec := start(t)

			require.NoError(t, e.AddDiv(models.Div{ID: "early", Contents: "two"}))
			exec.drain()

			scripts := surface.Scripts()
			removeAt := slices.Index(scripts, "MU.removeDiv('early')")
			addAt := slices.IndexFunc(scripts, func(s string) bool {
				return strings.HasPrefix(s, "MU.addDiv('early'") && strings.Contains(s, "'two'")
			})
			require.GreaterOrEqual(t, removeAt, 0)
			assert.Greater(t, addAt, removeAt)
		})

		t.Run(mode+"/removed div", func(t *testing.T) {
			e, surface, exec := start(t)

			e.RemoveDiv("early")
			exec.drain()

			assert.Contains(t, surface.Scripts(), "MU.removeDiv('early')")
			assert.NotContains(t, surface.Verbs(), protocol.VerbAddDiv)
		})
	}
}
