package selection

// The predicates below are pure functions of State. They gate host editing
// operations and the enabled state of every affordance.

// HasText reports whether a non-empty range of text is selected
func (s State) HasText() bool {
	return s.Valid && s.SelectionText != ""
}

// IsEditable reports whether there is a live caret or selection to edit at
func (s State) IsEditable() bool {
	return s.Valid
}

// IsLinkable reports whether the selected text could be turned into a link
func (s State) IsLinkable() bool {
	return s.HasText() && s.Href == "" && !s.IsInImage()
}

// IsFollowableLink reports whether the selection is inside a link with a target
func (s State) IsFollowableLink() bool {
	return s.Valid && s.Href != ""
}

// IsInListItem reports whether the selection is inside a list item
func (s State) IsInListItem() bool {
	return s.Valid && s.IsListItem
}

// IsInImage reports whether an image is selected
func (s State) IsInImage() bool {
	return s.Valid && s.Src != ""
}

// IsInTable reports whether the selection is inside a table
func (s State) IsInTable() bool {
	return s.Valid && s.InTable
}

// CanDent reports whether indent/outdent apply
func (s State) CanDent() bool {
	return s.Valid && !s.InTable && !s.IsInImage()
}

// CanStyle reports whether the paragraph style can be changed
func (s State) CanStyle() bool {
	return s.Valid && s.Style != StyleUndefined && !s.InTable && !s.IsInImage()
}

// CanList reports whether list toggling applies
func (s State) CanList() bool {
	return s.Valid && !s.InTable && !s.IsInImage()
}

// CanInsert reports whether a link, image or table can be inserted
func (s State) CanInsert() bool {
	return s.Valid && !s.IsInImage()
}

// CanLink reports whether a link can be inserted or edited
func (s State) CanLink() bool {
	return s.IsLinkable() || s.IsFollowableLink()
}

// CanFormat reports whether character formatting applies
func (s State) CanFormat() bool {
	return s.Valid && !s.IsInImage()
}

// CanCopyOrCut reports whether there is something to copy or cut
func (s State) CanCopyOrCut() bool {
	return s.HasText() || s.IsInImage()
}
