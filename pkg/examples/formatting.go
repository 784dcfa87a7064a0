package examples

func getFormattingExamples() []ExampleSet {
	return []ExampleSet{
		{
			Name:        "Character and paragraph formatting",
			Description: "Select text, toggle formats, restyle the paragraph and walk the undo history",
			Transcripts: []ExampleTranscript{
				{
					Name:     "Formatting",
					Filename: "example-formatting.yaml",
					Content: `name: formatting
settings:
  document:
    initial_html: "<p>Hello brave new world</p>"
    placeholder: Start writing
steps:
  - note: the user double clicks a word
    surface: "_select('', 'brave')"
  - op: toggleBold
  - op: toggleItalic
  - op: insertLink
    args: ["https://example.com/brave"]
  - op: copy
  - op: setStyle
    args: [H1]
  - note: back to a paragraph
    op: undo
  - op: redo
`,
				},
				{
					Name:     "Lists",
					Filename: "example-lists.yaml",
					Content: `name: lists
settings:
  document:
    initial_html: "<p>first</p><p>second</p>"
steps:
  - surface: "_select('', 'second')"
  - op: toggleList
    args: [UL]
  - note: switch the list type in place
    op: toggleList
    args: [OL]
  - op: indent
  - op: outdent
`,
				},
			},
		},
	}
}
