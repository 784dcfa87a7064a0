package examples

func getTableExamples() []ExampleSet {
	return []ExampleSet{
		{
			Name:        "Tables",
			Description: "Insert a table and grow it with rows, columns and a spanning header",
			Transcripts: []ExampleTranscript{
				{
					Name:     "Tables",
					Filename: "example-tables.yaml",
					Content: `name: tables
settings:
  document:
    initial_html: "<p>Quarterly numbers</p>"
steps:
  - surface: "_select('', 'numbers')"
  - op: insertTable
    args: ["2", "3"]
  - op: addRow
    args: [after]
  - op: addCol
    args: [before]
  - op: addHeader
    args: ["true"]
  - op: borderTable
    args: [outer]
  - op: deleteTableArea
    args: [row]
`,
				},
			},
		},
	}
}
