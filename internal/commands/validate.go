package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func registerValidateCmd(rootCmd *cobra.Command, s *settings) {
	var (
		pid       string
		levelName string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate an EDIFACT message against MIG and AHB rules",
		Long: `Validate an EDIFACT message against the MIG structure for a
Prüfidentifikator and, depending on the level, its AHB conditions and value
formats. The exit status is non-zero when any finding reaches the configured
fail-on severity.`,
		Example: `  # Structure check only
  edikit validate msg.edi --pid 55001 --level structure

  # Full check with machine-readable output
  edikit validate msg.edi --pid 55001 --level full --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(s)
			if err != nil {
				return err
			}
			if p.validator == nil {
				return errors.New("validation needs schemas.pidDir in the configuration")
			}
			input, err := readInput(args[0])
			if err != nil {
				return err
			}

			if levelName == "" {
				levelName = p.cfg.Validation.Level
			}
			level, err := parseLevel(levelName)
			if err != nil {
				return err
			}
			failOn, err := parseSeverity(p.cfg.Validation.FailOn)
			if err != nil {
				return err
			}

			issues, err := p.validator.Validate(input, pid, level)
			if err != nil {
				return err
			}

			if asJSON {
				out, err := json.MarshalIndent(issues, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
			} else {
				renderIssues(os.Stdout, issues, s.NoColor)
			}

			failing := 0
			for _, issue := range issues {
				if issue.Severity >= failOn {
					failing++
				}
			}
			if failing > 0 {
				return fmt.Errorf("%d finding(s) at severity %s or above", failing, failOn)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pid, "pid", "", "Prüfidentifikator to validate against")
	cmd.Flags().StringVar(&levelName, "level", "", "validation level: structure, conditions or full (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit findings as JSON")
	_ = cmd.MarkFlagRequired("pid")
	rootCmd.AddCommand(cmd)
}
