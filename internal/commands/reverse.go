package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/enermsg/edikit/pkg/convert"
	"github.com/enermsg/edikit/pkg/stream"
)

func registerReverseCmd(rootCmd *cobra.Command, s *settings) {
	var (
		output    string
		sender    string
		receiver  string
		reference string
		una       bool
	)
	cmd := &cobra.Command{
		Use:   "reverse <file.json>",
		Short: "Convert a BO4E document back to an EDIFACT interchange",
		Long: `Convert a BO4E JSON document back to a rendered EDIFACT interchange.
The mapping definitions are applied in reverse and the resulting message is
wrapped in a fresh UNB/UNZ envelope. Fields without an inverse mapping are
reported on stderr and omitted from the output.`,
		Example: `  # Rebuild an interchange with explicit envelope parties
  edikit reverse doc.json --sender 9900123456789 --receiver 9900987654321`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(s)
			if err != nil {
				return err
			}
			doc, err := readInput(args[0])
			if err != nil {
				return err
			}

			var envOpts []stream.EnvelopeOption
			if sender != "" {
				envOpts = append(envOpts, stream.WithSender(sender))
			}
			if receiver != "" {
				envOpts = append(envOpts, stream.WithReceiver(receiver))
			}
			if reference != "" {
				envOpts = append(envOpts, stream.WithReference(reference))
			}
			opts := []convert.ReverseOption{convert.WithEnvelope(envOpts...)}
			if una {
				opts = append(opts, convert.WithUNA())
			}

			out, issues, err := p.coordinator.Reverse(cmd.Context(), doc, opts...)
			renderMappingIssues(os.Stderr, issues, s.NoColor)
			if err != nil {
				return err
			}
			return writeOutput(output, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the interchange to this file instead of stdout")
	cmd.Flags().StringVar(&sender, "sender", "", "UNB sender identification")
	cmd.Flags().StringVar(&receiver, "receiver", "", "UNB receiver identification")
	cmd.Flags().StringVar(&reference, "reference", "", "UNB interchange control reference")
	cmd.Flags().BoolVar(&una, "una", false, "emit an explicit UNA service string advice")
	rootCmd.AddCommand(cmd)
}
