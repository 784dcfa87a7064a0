package editor

import (
	"fmt"

	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/selection"
)

// Direction places a new row or column, or the next search match,
// relative to the selection
type Direction string

const (
	Before Direction = "before"
	After  Direction = "after"
)

// TableArea is what DeleteTableArea removes
type TableArea string

const (
	AreaRow   TableArea = "row"
	AreaCol   TableArea = "col"
	AreaTable TableArea = "table"
)

// InsertTable inserts an empty rows x cols table at the selection
func (e *Editor) InsertTable(rows, cols int) error {
	if rows < 1 || cols < 1 {
		return fmt.Errorf("table must be at least 1x1, got %dx%d", rows, cols)
	}
	return e.edit(canInsert, protocol.Call(protocol.VerbInsertTable, protocol.Int(rows), protocol.Int(cols)))
}

// AddRow adds a row before or after the selected one
func (e *Editor) AddRow(dir Direction) error {
	if err := checkDirection(dir); err != nil {
		return err
	}
	return e.edit(isInTable, protocol.Call(protocol.VerbAddRow, protocol.String(string(dir))))
}

// AddCol adds a column before or after the selected one
func (e *Editor) AddCol(dir Direction) error {
	if err := checkDirection(dir); err != nil {
		return err
	}
	return e.edit(isInTable, protocol.Call(protocol.VerbAddCol, protocol.String(string(dir))))
}

// AddHeader adds a header row, its cells spanning every column when colspan is set
func (e *Editor) AddHeader(colspan bool) error {
	return e.edit(isInTable, protocol.Call(protocol.VerbAddHeader, protocol.Bool(colspan)))
}

// DeleteTableArea removes the selected row, column or the whole table
func (e *Editor) DeleteTableArea(area TableArea) error {
	switch area {
	case AreaRow, AreaCol, AreaTable:
	default:
		return fmt.Errorf("unknown table area %q", area)
	}
	return e.edit(isInTable, protocol.Call(protocol.VerbDeleteTableArea, protocol.String(string(area))))
}

// BorderTable sets the border style of the selected table
func (e *Editor) BorderTable(border selection.Border) error {
	return e.edit(isInTable, protocol.Call(protocol.VerbBorderTable, protocol.String(border.String())))
}

func checkDirection(dir Direction) error {
	if dir != Before && dir != After {
		return fmt.Errorf("unknown direction %q", dir)
	}
	return nil
}
