package transcript

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pluqqy/editbridge/pkg/editor"
	"github.com/pluqqy/editbridge/pkg/selection"
)

type opSpec struct {
	args    []string
	minArgs int
	run     func(e *editor.Editor, args []string) error
}

func (s opSpec) usage() string {
	if len(s.args) == 0 {
		return "no arguments"
	}
	names := make([]string, len(s.args))
	for i, name := range s.args {
		if i >= s.minArgs {
			name = "[" + name + "]"
		}
		names[i] = name
	}
	return strings.Join(names, " ")
}

func noArgs(fn func(e *editor.Editor) error) opSpec {
	return opSpec{run: func(e *editor.Editor, _ []string) error { return fn(e) }}
}

func oneArg(name string, fn func(e *editor.Editor, arg string) error) opSpec {
	return opSpec{
		args:    []string{name},
		minArgs: 1,
		run:     func(e *editor.Editor, args []string) error { return fn(e, args[0]) },
	}
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func intArg(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, value)
	}
	return n, nil
}

var ops = map[string]opSpec{
	"toggleBold":        noArgs((*editor.Editor).ToggleBold),
	"toggleItalic":      noArgs((*editor.Editor).ToggleItalic),
	"toggleUnderline":   noArgs((*editor.Editor).ToggleUnderline),
	"toggleStrike":      noArgs((*editor.Editor).ToggleStrike),
	"toggleSubscript":   noArgs((*editor.Editor).ToggleSubscript),
	"toggleSuperscript": noArgs((*editor.Editor).ToggleSuperscript),
	"toggleCode":        noArgs((*editor.Editor).ToggleCode),
	"indent":            noArgs((*editor.Editor).Indent),
	"outdent":           noArgs((*editor.Editor).Outdent),
	"deleteLink":        noArgs((*editor.Editor).DeleteLink),
	"copy":              noArgs((*editor.Editor).Copy),
	"cut":               noArgs((*editor.Editor).Cut),
	"undo":              noArgs((*editor.Editor).Undo),
	"redo":              noArgs((*editor.Editor).Redo),
	"emptyDocument":     noArgs((*editor.Editor).EmptyDocument),

	"deactivateSearch": noArgs(func(e *editor.Editor) error {
		e.DeactivateSearch()
		return nil
	}),
	"cancelSearch": noArgs(func(e *editor.Editor) error {
		e.CancelSearch()
		return nil
	}),

	"setStyle": oneArg("style", func(e *editor.Editor, arg string) error {
		return e.SetStyle(selection.ParseStyle(arg))
	}),
	"toggleList": oneArg("type", func(e *editor.Editor, arg string) error {
		return e.ToggleList(selection.ParseListType(arg))
	}),
	"insertLink":     oneArg("href", (*editor.Editor).InsertLink),
	"focusOn":        oneArg("id", (*editor.Editor).FocusOn),
	"scrollIntoView": oneArg("id", (*editor.Editor).ScrollIntoView),
	"removeButton":   oneArg("id", (*editor.Editor).RemoveButton),
	"removeDiv": oneArg("id", func(e *editor.Editor, arg string) error {
		e.RemoveDiv(arg)
		return nil
	}),
	"setPlaceholder": oneArg("text", func(e *editor.Editor, arg string) error {
		e.SetPlaceholder(arg)
		return nil
	}),
	"setHTML": oneArg("markup", func(e *editor.Editor, arg string) error {
		e.SetHTML(arg, nil)
		return nil
	}),
	"addRow": oneArg("before|after", func(e *editor.Editor, arg string) error {
		return e.AddRow(editor.Direction(arg))
	}),
	"addCol": oneArg("before|after", func(e *editor.Editor, arg string) error {
		return e.AddCol(editor.Direction(arg))
	}),
	"addHeader": oneArg("colspan", func(e *editor.Editor, arg string) error {
		colspan, err := strconv.ParseBool(arg)
		if err != nil {
			return fmt.Errorf("colspan must be true or false, got %q", arg)
		}
		return e.AddHeader(colspan)
	}),
	"deleteTableArea": oneArg("row|col|table", func(e *editor.Editor, arg string) error {
		return e.DeleteTableArea(editor.TableArea(arg))
	}),
	"borderTable": oneArg("border", func(e *editor.Editor, arg string) error {
		return e.BorderTable(selection.ParseBorder(arg))
	}),

	"insertImage": {
		args:    []string{"src", "alt"},
		minArgs: 1,
		run: func(e *editor.Editor, args []string) error {
			return e.InsertImage(args[0], optional(args, 1))
		},
	},
	"modifyImage": {
		args:    []string{"src", "alt", "scale"},
		minArgs: 3,
		run: func(e *editor.Editor, args []string) error {
			scale, err := intArg("scale", args[2])
			if err != nil {
				return err
			}
			return e.ModifyImage(args[0], args[1], scale)
		},
	},
	"insertTable": {
		args:    []string{"rows", "cols"},
		minArgs: 2,
		run: func(e *editor.Editor, args []string) error {
			rows, err := intArg("rows", args[0])
			if err != nil {
				return err
			}
			cols, err := intArg("cols", args[1])
			if err != nil {
				return err
			}
			return e.InsertTable(rows, cols)
		},
	},
	"search": {
		args:    []string{"text", "before|after"},
		minArgs: 1,
		run: func(e *editor.Editor, args []string) error {
			dir := editor.After
			if d := optional(args, 1); d != "" {
				dir = editor.Direction(d)
			}
			return e.Search(args[0], dir)
		},
	},
}

// Op describes an editor operation a transcript can call
type Op struct {
	Name  string `json:"name" yaml:"name"`
	Usage string `json:"usage" yaml:"usage"`
}

// Ops lists the operations in name order
func Ops() []Op {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	slices.Sort(names)

	list := make([]Op, len(names))
	for i, name := range names {
		list[i] = Op{Name: name, Usage: ops[name].usage()}
	}
	return list
}
