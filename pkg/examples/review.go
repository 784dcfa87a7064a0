package examples

func getReviewExamples() []ExampleSet {
	return []ExampleSet{
		{
			Name:        "Review comments",
			Description: "A comment region with a resolve button, search across regions and host actions",
			Transcripts: []ExampleTranscript{
				{
					Name:     "Review",
					Filename: "example-review.yaml",
					Content: `name: review
settings:
  document:
    initial_html: "<p>The draft needs a source for this claim</p>"
divs:
  - id: comment1
    class: comment
    attributes:
      contenteditable: true
    contents: "<p>Add a source</p>"
    buttons:
      id: comment1-buttons
      parent: comment1
      class: tools
      buttons:
        - id: resolve
          label: Resolve
steps:
  - op: search
    args: [source]
  - op: search
    args: [source, after]
  - note: editing is blocked while searching
    op: toggleBold
  - op: deactivateSearch
  - surface: "_clickButton('resolve')"
  - event: '{"messageType":"action","action":"resolved","divId":"comment1"}'
  - op: removeDiv
    args: [comment1]
`,
				},
			},
		},
	}
}
