package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/enermsg/edikit/pkg/convert"
	"github.com/enermsg/edikit/pkg/mapping"
)

type convertedMessage struct {
	Reference          string                `json:"reference,omitempty"`
	Pruefidentifikator string                `json:"pruefidentifikator,omitempty"`
	Document           json.RawMessage       `json:"document"`
	Trace              []mapping.TraceRecord `json:"trace,omitempty"`
}

func registerConvertCmd(rootCmd *cobra.Command, s *settings) {
	var (
		output string
		trace  bool
	)
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert an EDIFACT interchange to BO4E JSON",
		Long: `Convert an EDIFACT interchange to BO4E JSON.
Reads the input file (or stdin with "-"), assembles each message against the
MIG schema and writes one BO4E document per message. Recoverable mapping
problems go to stderr and never abort the conversion.`,
		Example: `  # Convert a UTILMD interchange
  edikit convert interchange.edi -o out.json

  # Include the mapping trace
  edikit convert interchange.edi --trace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(s)
			if err != nil {
				return err
			}
			input, err := readInput(args[0])
			if err != nil {
				return err
			}

			var opts []convert.ForwardOption
			if trace {
				opts = append(opts, convert.WithTrace())
			}
			result, err := p.coordinator.Forward(cmd.Context(), input, opts...)
			if err != nil {
				return err
			}

			for _, msg := range result.Messages {
				renderMappingIssues(os.Stderr, msg.Issues, s.NoColor)
			}
			out, err := marshalResult(result, trace)
			if err != nil {
				return err
			}
			return writeOutput(output, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the JSON output to this file instead of stdout")
	cmd.Flags().BoolVar(&trace, "trace", false, "include a record of every mapped field")
	rootCmd.AddCommand(cmd)
}

// marshalResult writes a single document bare and wraps multi-message
// interchanges (or traced runs) in an envelope array.
func marshalResult(result *convert.Result, trace bool) ([]byte, error) {
	if len(result.Messages) == 1 && !trace {
		return result.Messages[0].Document, nil
	}
	msgs := make([]convertedMessage, 0, len(result.Messages))
	for _, m := range result.Messages {
		msgs = append(msgs, convertedMessage{
			Reference:          m.Reference,
			Pruefidentifikator: m.Pruefidentifikator,
			Document:           m.Document,
			Trace:              m.Trace,
		})
	}
	out, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return out, nil
}
