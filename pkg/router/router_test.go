package router

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pluqqy/editbridge/pkg/dispatcher"
	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/registry"
	"github.com/pluqqy/editbridge/pkg/resources"
	"github.com/pluqqy/editbridge/pkg/selection"
)

// autoChannel answers every script immediately from a table keyed by verb
type autoChannel struct {
	mu        sync.Mutex
	scripts   []string
	responses map[string]any
	failures  map[string]error
}

func newAutoChannel() *autoChannel {
	return &autoChannel{
		responses: map[string]any{protocol.VerbGetHeight: 300.0},
		failures:  map[string]error{},
	}
}

func verbOf(script string) string {
	verb := strings.TrimPrefix(script, protocol.Namespace+".")
	if i := strings.IndexByte(verb, '('); i >= 0 {
		verb = verb[:i]
	}
	return verb
}

func (c *autoChannel) Evaluate(script string, done func(any, error)) {
	c.mu.Lock()
	c.scripts = append(c.scripts, script)
	verb := verbOf(script)
	result, err := c.responses[verb], c.failures[verb]
	c.mu.Unlock()
	done(result, err)
}

func (c *autoChannel) Verbs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	verbs := make([]string, len(c.scripts))
	for i, s := range c.scripts {
		verbs[i] = verbOf(s)
	}
	return verbs
}

func (c *autoChannel) Scripts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.scripts...)
}

type memClipboard struct {
	texts []string
	err   error
}

func (m *memClipboard) WriteText(text string) error {
	if m.err != nil {
		return m.err
	}
	m.texts = append(m.texts, text)
	return nil
}

type fixture struct {
	channel   *autoChannel
	registry  *registry.Registry
	recorder  *Recorder
	clipboard *memClipboard
	logs      *observer.ObservedLogs
	router    *Router
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	f := &fixture{
		channel:   newAutoChannel(),
		registry:  registry.New(),
		recorder:  &Recorder{},
		clipboard: &memClipboard{},
		logs:      logs,
	}
	d := dispatcher.New(f.channel, dispatcher.WithLogger(logger))
	opts = append([]Option{
		WithDelegate(f.recorder),
		WithClipboard(f.clipboard),
		WithLogger(logger),
	}, opts...)
	f.router = New(d, f.registry, opts...)
	return f
}

func (f *fixture) drops() int {
	return f.logs.FilterMessageSnippet("dropped").Len()
}

var structuredSamples = map[string]string{
	protocol.TypeAction:        `{"messageType":"action","action":"save","divId":"comment1"}`,
	protocol.TypeLog:           `{"messageType":"log","log":"hello"}`,
	protocol.TypeError:         `{"messageType":"error","code":"E1","message":"boom","alert":true}`,
	protocol.TypeCopyImage:     `{"messageType":"copyImage","src":"cat.png","alt":"cat","dimensions":{"width":10,"height":20}}`,
	protocol.TypeAddedImage:    `{"messageType":"addedImage","src":"cat.png","divId":"comment1"}`,
	protocol.TypeDeletedImage:  `{"messageType":"deletedImage","src":"cat.png"}`,
	protocol.TypeButtonClicked: `{"messageType":"buttonClicked","id":"b1","rect":{"x":1,"y":2,"width":3,"height":4}}`,
}

func TestDispatchTableCompleteness(t *testing.T) {
	focused := func(t *testing.T, f *fixture) {
		f.router.Route(protocol.NameFocus)
		f.recorder.Reset()
	}

	tests := []struct {
		payload   string
		prepare   func(t *testing.T, f *fixture)
		wantHooks []string
		wantVerbs []string
	}{
		{payload: "ready", wantHooks: []string{HookWillLoad}, wantVerbs: []string{protocol.VerbLoadUserFiles}},
		{
			payload:   "loadedUserFiles",
			wantHooks: []string{HookDidLoad, HookHeightChanged},
			wantVerbs: []string{protocol.VerbSetTopLevelAttributes, protocol.VerbSetHTML, protocol.VerbGetHeight},
		},
		{payload: "updateHeight", wantHooks: []string{HookHeightChanged}, wantVerbs: []string{protocol.VerbGetHeight}},
		{payload: "blur", wantHooks: []string{HookFocusLost}},
		{payload: "focus", wantHooks: []string{HookFocusGained}},
		{
			payload:   "selectionChange",
			prepare:   focused,
			wantHooks: []string{HookSelectionChanged},
			wantVerbs: []string{protocol.VerbGetSelectionState},
		},
		{payload: "click", prepare: focused, wantHooks: []string{HookClicked}},
		{payload: "undoSet", wantHooks: []string{HookUndoPushed}},
		{payload: "searched", wantVerbs: []string{protocol.VerbRevealSearchMatch}},
		{payload: "activateSearch", wantHooks: []string{HookSearchActivated}},
		{payload: "deactivateSearch", wantHooks: []string{HookSearchDeactivated}},
		{
			payload:   "input",
			wantHooks: []string{HookInputChanged, HookHeightChanged},
			wantVerbs: []string{protocol.VerbGetHeight},
		},
		{payload: "input:comment1", wantHooks: []string{HookInputChanged}},
		{payload: structuredSamples[protocol.TypeAction], wantHooks: []string{HookActionReceived}},
		{payload: structuredSamples[protocol.TypeLog]},
		{payload: structuredSamples[protocol.TypeError], wantHooks: []string{HookErrorReported}},
		{payload: structuredSamples[protocol.TypeCopyImage]},
		{payload: structuredSamples[protocol.TypeAddedImage], wantHooks: []string{HookImageAdded}},
		{
			payload:   structuredSamples[protocol.TypeDeletedImage],
			wantHooks: []string{HookImageDeleted, HookHeightChanged},
			wantVerbs: []string{protocol.VerbGetHeight},
		},
		{
			payload: structuredSamples[protocol.TypeButtonClicked],
			prepare: func(t *testing.T, f *fixture) {
				_, err := f.registry.Add(models.Div{
					ID:          "comment1",
					ButtonGroup: models.NewButtonGroup("comment1", "", false, models.Button{ID: "b1"}),
				})
				require.NoError(t, err)
			},
			wantHooks: []string{HookButtonClicked},
		},
	}

	covered := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			f := newFixture(t)
			if tt.prepare != nil {
				tt.prepare(t, f)
			}
			before := len(f.channel.Scripts())

			f.router.Route(tt.payload)

			assert.Equal(t, tt.wantHooks, nilIfEmpty(f.recorder.Hooks()))
			assert.Equal(t, tt.wantVerbs, nilIfEmpty(f.channel.Verbs()[before:]))
			assert.Zero(t, f.drops(), "event fell through to the drop path")

			ev, err := protocol.Decode(tt.payload)
			require.NoError(t, err)
			covered[ev.Name()] = true
		})
	}

	for _, name := range append(protocol.BareEvents(), protocol.MessageTypes()...) {
		assert.True(t, covered[name], "no dispatch case for %q", name)
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestInputPaths(t *testing.T) {
	f := newFixture(t)

	f.router.Route("input:comment1")
	assert.Equal(t, []Entry{{Hook: HookInputChanged, Detail: "comment1"}}, f.recorder.Entries())
	assert.Empty(t, f.channel.Scripts(), "non-root input must not recompute height")

	f.recorder.Reset()
	f.router.Route("input")
	entries := f.recorder.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, Entry{Hook: HookInputChanged, Detail: models.RootDivID}, entries[0])
	assert.Equal(t, []string{protocol.VerbGetHeight}, f.channel.Verbs())
	assert.Equal(t, 300, f.router.ContentHeight())

	// unchanged height is not reported again
	f.recorder.Reset()
	f.router.Route("input:" + models.RootDivID)
	assert.Equal(t, []string{HookInputChanged}, f.recorder.Hooks())
}

func TestStructuredErrorReachesDelegate(t *testing.T) {
	f := newFixture(t)

	f.router.Route(`{"messageType":"error","code":"E1","message":"boom","alert":true}`)

	require.Len(t, f.recorder.Errors, 1)
	got := f.recorder.Errors[0]
	assert.Equal(t, "E1", got.Code)
	assert.Equal(t, "boom", got.Message)
	assert.Equal(t, "", got.Info)
	assert.True(t, got.Alert)
}

func TestMalformedInputIsDropped(t *testing.T) {
	f := newFixture(t)

	for messageType, sample := range structuredSamples {
		for i := 1; i < len(sample); i++ {
			prefix := sample[:i]
			assert.NotPanics(t, func() { f.router.Route(prefix) }, "%s prefix %q", messageType, prefix)
		}
	}
	for _, payload := range []string{
		"",
		"bogus",
		`{"messageType":"nope"}`,
		`{"messageType":"buttonClicked","rect":{}}`,
		`{"messageType":"error","code":"E1"}`,
		`[1,2,3]`,
	} {
		f.router.Route(payload)
	}

	assert.Empty(t, f.recorder.Entries())
	assert.Empty(t, f.channel.Scripts())
	assert.Positive(t, f.drops())
}

func TestSetupPipeline(t *testing.T) {
	settings := *models.DefaultSettings()
	settings.Document.Placeholder = "Write something"
	settings.Document.InitialHTML = "<p>hi</p>"
	settings.Resources.UserScript = "user.js"

	f := newFixture(t, WithSettings(settings))
	_, err := f.registry.Add(models.Div{ID: models.RootDivID})
	require.NoError(t, err)
	_, err = f.registry.Add(models.Div{ID: "a"})
	require.NoError(t, err)
	_, err = f.registry.Add(models.Div{ID: "b"})
	require.NoError(t, err)

	assert.Equal(t, AwaitingReady, f.router.Phase())

	f.router.Route("ready")
	assert.Equal(t, LoadingUserFiles, f.router.Phase())
	assert.Equal(t, []string{"MU.loadUserFiles('user.js', null)"}, f.channel.Scripts())

	f.router.Route("loadedUserFiles")
	assert.Equal(t, Ready, f.router.Phase())
	assert.Equal(t, []string{
		protocol.VerbLoadUserFiles,
		protocol.VerbSetTopLevelAttributes,
		protocol.VerbSetPlaceholder,
		protocol.VerbSetHTML,
		protocol.VerbAddDiv,
		protocol.VerbAddDiv,
		protocol.VerbGetHeight,
	}, f.channel.Verbs())
	assert.Equal(t, []string{HookWillLoad, HookDidLoad, HookHeightChanged}, f.recorder.Hooks())
}

// manualChannel holds every result until the test releases it
type manualChannel struct {
	scripts []string
	pending []func(any, error)
}

func (m *manualChannel) Evaluate(script string, done func(any, error)) {
	m.scripts = append(m.scripts, script)
	m.pending = append(m.pending, done)
}

func TestSetupPipelineWaitsForEachStep(t *testing.T) {
	ch := &manualChannel{}
	recorder := &Recorder{}
	r := New(dispatcher.New(ch), registry.New(), WithDelegate(recorder))

	r.Route("ready")
	r.Route("loadedUserFiles")
	require.Len(t, ch.scripts, 2)
	assert.Equal(t, protocol.VerbSetTopLevelAttributes, verbOf(ch.scripts[1]))

	// a failed step does not stall the pipeline
	ch.pending[1](nil, errors.New("attributes rejected"))
	require.Len(t, ch.scripts, 3)
	assert.Equal(t, protocol.VerbSetHTML, verbOf(ch.scripts[2]))
	assert.Equal(t, LoadingContent, r.Phase())

	ch.pending[2](nil, nil)
	assert.Equal(t, Ready, r.Phase())
	assert.Equal(t, 1, recorder.Count(HookDidLoad))
}

func TestSelectionChange(t *testing.T) {
	t.Run("ignored without focus", func(t *testing.T) {
		f := newFixture(t)
		f.router.Route("selectionChange")
		assert.Empty(t, f.channel.Scripts())
		assert.Empty(t, f.recorder.Entries())
	})

	t.Run("replaces both copies", func(t *testing.T) {
		f := newFixture(t)
		f.channel.responses[protocol.VerbGetSelectionState] = `{"valid":true,"divid":"editor","selection":"hi","bold":true}`
		f.router.Route("focus")
		f.router.Route("selectionChange")

		local := f.router.Local().State()
		shared := f.router.Shared().State()
		assert.True(t, local.Valid)
		assert.True(t, local.Bold)
		assert.Equal(t, local, shared)

		// the copies are independent values
		assert.NotSame(t, f.router.Local(), f.router.Shared())
		f.router.Shared().Reset()
		assert.True(t, f.router.Local().State().Valid)
	})

	t.Run("no stale fields survive", func(t *testing.T) {
		f := newFixture(t)
		f.router.Route("focus")
		f.channel.responses[protocol.VerbGetSelectionState] = `{"valid":true,"href":"https://a","bold":true}`
		f.router.Route("selectionChange")

		f.channel.responses[protocol.VerbGetSelectionState] = nil
		f.router.Route("selectionChange")
		assert.Equal(t, selection.Default(), f.router.Local().State())
	})

	t.Run("query failure yields invalid state", func(t *testing.T) {
		f := newFixture(t)
		f.router.Route("focus")
		f.channel.failures[protocol.VerbGetSelectionState] = errors.New("engine gone")
		f.router.Route("selectionChange")
		assert.False(t, f.router.Local().State().Valid)
		assert.Equal(t, 1, f.recorder.Count(HookSelectionChanged))
	})

	t.Run("late result of an older query is dropped", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		ch := &manualChannel{}
		recorder := &Recorder{}
		r := New(dispatcher.New(ch), registry.New(), WithDelegate(recorder), WithLogger(zap.New(core)))

		r.Route("focus")
		r.Route("selectionChange")
		r.Route("selectionChange")
		require.Len(t, ch.pending, 2)

		ch.pending[1](`{"valid":true,"italic":true}`, nil)
		ch.pending[0](`{"valid":true,"bold":true}`, nil)

		local := r.Local().State()
		assert.True(t, local.Italic)
		assert.False(t, local.Bold)
		assert.Equal(t, local, r.Shared().State())
		assert.Equal(t, 1, recorder.Count(HookSelectionChanged))
		assert.Equal(t, 1, logs.FilterMessage("stale selection snapshot dropped").Len())
	})

	t.Run("done receives the newer state when its result is stale", func(t *testing.T) {
		ch := &manualChannel{}
		r := New(dispatcher.New(ch), registry.New())

		var got selection.State
		r.QuerySelection(func(s selection.State) { got = s })
		r.QuerySelection(nil)

		ch.pending[1](`{"valid":true,"divid":"editor","underline":true}`, nil)
		ch.pending[0](`{"valid":true,"divid":"editor"}`, nil)
		assert.True(t, got.Underline)
	})
}

func TestClickClassification(t *testing.T) {
	tests := []struct {
		name     string
		snapshot string
		want     []string
	}{
		{"plain text", `{"valid":true}`, []string{HookClicked}},
		{"link", `{"valid":true,"href":"https://a"}`, []string{HookClicked, HookLinkSelected}},
		{"image", `{"valid":true,"src":"cat.png"}`, []string{HookClicked, HookImageSelected}},
		{"table", `{"valid":true,"table":true}`, []string{HookClicked, HookTableSelected}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.channel.responses[protocol.VerbGetSelectionState] = tt.snapshot
			f.router.Route("focus")
			f.router.Route("selectionChange")
			f.recorder.Reset()

			f.router.Route("click")
			assert.Equal(t, tt.want, f.recorder.Hooks())
		})
	}

	t.Run("click claims focus", func(t *testing.T) {
		f := newFixture(t)
		f.router.Route("click")
		assert.True(t, f.router.HasFocus())
		assert.Equal(t, []string{HookFocusGained, HookClicked}, f.recorder.Hooks())
	})
}

func TestButtonClicked(t *testing.T) {
	f := newFixture(t)

	var got []models.ActionInfo
	_, err := f.registry.Add(models.Div{
		ID: "comment1",
		ButtonGroup: models.NewButtonGroup("comment1", "tools", false, models.Button{
			ID:       "b1",
			TargetID: "comment1-body",
			Action:   func(info models.ActionInfo) { got = append(got, info) },
		}),
	})
	require.NoError(t, err)

	f.router.Route(structuredSamples[protocol.TypeButtonClicked])
	require.Len(t, got, 1)
	assert.Equal(t, models.ActionInfo{
		OriginID: "comment1",
		TargetID: "comment1-body",
		Rect:     models.Rect{X: 1, Y: 2, Width: 3, Height: 4},
	}, got[0])
	assert.Equal(t, []Entry{{Hook: HookButtonClicked, Detail: "b1 at 1,2 3x4"}}, f.recorder.Entries())

	f.registry.Remove("comment1")
	f.router.Route(structuredSamples[protocol.TypeButtonClicked])
	assert.Len(t, got, 1)
	assert.Equal(t, 1, f.logs.FilterMessage("click on unknown button dropped").Len())
}

func TestDynamicButtonGroups(t *testing.T) {
	f := newFixture(t)
	div := models.Div{
		ID:          "comment1",
		FocusID:     "comment1-text",
		ButtonGroup: models.NewButtonGroup("comment1", "tools", true, models.Button{ID: "b1", Label: "Reply"}),
	}
	_, err := f.registry.Add(div)
	require.NoError(t, err)
	f.router.Route("focus")

	selectIn := func(divID string) {
		f.channel.responses[protocol.VerbGetSelectionState] = `{"valid":true,"divid":"` + divID + `"}`
		f.router.Route("selectionChange")
	}

	selectIn("comment1-text")
	assert.Equal(t, []string{protocol.VerbGetSelectionState, protocol.VerbAddButtonGroup}, f.channel.Verbs())

	// staying in the same region pushes nothing new
	selectIn("comment1")
	assert.Len(t, f.channel.Verbs(), 3)

	selectIn(models.RootDivID)
	verbs := f.channel.Verbs()
	assert.Equal(t, protocol.VerbRemoveButtonGroup, verbs[len(verbs)-1])
	assert.Contains(t, f.channel.Scripts()[len(verbs)-1], models.GroupID("comment1"))
}

func TestImagesAndClipboard(t *testing.T) {
	root := t.TempDir()
	work, err := resources.NewWorkArea(root, "s1", nil)
	require.NoError(t, err)

	f := newFixture(t, WithWorkArea(work))

	f.router.Route(structuredSamples[protocol.TypeAddedImage])
	entries := f.recorder.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Detail, "file://")
	assert.Contains(t, entries[0].Detail, "/s1/cat.png in comment1")

	f.router.Route(`{"messageType":"addedImage","src":"https://x/y.png"}`)
	assert.Equal(t, Entry{Hook: HookImageAdded, Detail: "https://x/y.png in editor"}, f.recorder.Entries()[1])

	f.router.Route(structuredSamples[protocol.TypeCopyImage])
	require.Len(t, f.clipboard.texts, 1)
	assert.True(t, strings.HasSuffix(f.clipboard.texts[0], "/s1/cat.png"))

	f.clipboard.err = errors.New("no display")
	f.router.Route(structuredSamples[protocol.TypeCopyImage])
	assert.Equal(t, 1, f.logs.FilterMessage("failed to copy image to clipboard").Len())
}

func TestMaterializeWithResources(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "cat.png"), []byte("meow"), 0644))
	work, err := resources.NewWorkArea(t.TempDir(), "s1", nil)
	require.NoError(t, err)

	f := newFixture(t, WithWorkArea(work), WithBulkMode(dispatcher.Sequenced))

	var done []any
	f.router.Materialize([]models.Div{
		{ID: "a", Contents: `<img src="cat.png">`, ResourceBase: src},
		{ID: "b", Contents: `<img src="dog.png">`, ResourceBase: filepath.Join(src, "missing")},
	}, func(result any, err error) {
		done = append(done, result)
	})

	assert.Equal(t, []any{2}, done)
	assert.True(t, work.Exists("cat.png"))
	assert.Equal(t, 1, f.logs.FilterMessage("resource population failed").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("div references missing assets").Len())
	assert.Equal(t, []string{protocol.VerbAddDiv, protocol.VerbAddDiv}, f.channel.Verbs())
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{300.0, 300, true},
		{299.6, 300, true},
		{int64(12), 12, true},
		{7, 7, true},
		{"42", 42, true},
		{"tall", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := toInt(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestRecorderOnRecord(t *testing.T) {
	var seen []Entry
	recorder := &Recorder{OnRecord: func(e Entry) { seen = append(seen, e) }}

	recorder.InputChanged("comment1")
	recorder.FocusLost()

	want := []Entry{{Hook: HookInputChanged, Detail: "comment1"}, {Hook: HookFocusLost}}
	assert.Equal(t, want, seen)
	assert.Equal(t, want, recorder.Entries())
	assert.Equal(t, "InputChanged comment1", seen[0].String())
}
