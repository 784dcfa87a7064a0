package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pluqqy/editbridge/internal/cli"
	"github.com/pluqqy/editbridge/pkg/protocol"
	"github.com/pluqqy/editbridge/pkg/transcript"
)

var vocabOutput string

// Vocabulary lists every name that crosses the bridge
type Vocabulary struct {
	BareEvents   []string        `json:"bare_events" yaml:"bare_events"`
	MessageTypes []string        `json:"message_types" yaml:"message_types"`
	Verbs        []string        `json:"verbs" yaml:"verbs"`
	Ops          []transcript.Op `json:"ops" yaml:"ops"`
}

// NewVocabCommand creates the vocab command
func NewVocabCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "List inbound events, outbound verbs and transcript operations",
		Long: `List the vocabulary of the bridge: the bare string events and structured
message types the surface may send, the verbs the host invokes on the
surface and the operations a transcript step may name.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateOutputFormat(vocabOutput)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			vocab := Vocabulary{
				BareEvents:   protocol.BareEvents(),
				MessageTypes: protocol.MessageTypes(),
				Verbs:        protocol.Verbs(),
				Ops:          transcript.Ops(),
			}

			w := cmd.OutOrStdout()
			if vocabOutput != string(cli.FormatText) {
				return cli.OutputResults(w, vocabOutput, vocab)
			}

			table := cli.NewTableFormatter(w)
			table.Header("KIND", "NAME", "USAGE")
			for _, name := range vocab.BareEvents {
				table.Row("event", name, "")
			}
			table.Row("event", protocol.NameInput+":<divId>", "")
			for _, t := range vocab.MessageTypes {
				table.Row("message", t, "")
			}
			for _, verb := range vocab.Verbs {
				table.Row("verb", protocol.Namespace+"."+verb, "")
			}
			for _, op := range vocab.Ops {
				table.Row("op", op.Name, op.Usage)
			}
			table.Flush()

			fmt.Fprintf(w, "\n%d events, %d message types, %d verbs, %d ops\n",
				len(vocab.BareEvents)+1, len(vocab.MessageTypes), len(vocab.Verbs), len(vocab.Ops))
			return nil
		},
	}

	cmd.Flags().StringVarP(&vocabOutput, "output", "o", "text", "Output format (text, json, yaml)")
	return cmd
}
