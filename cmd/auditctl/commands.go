package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"millaudit/internal/adapters/filestore"
	"millaudit/internal/adapters/memory"
	"millaudit/internal/domain"
	"millaudit/internal/scoring"
	"millaudit/internal/services/audits"
	"millaudit/internal/services/templates"
)

type scoreFlags struct {
	template           string
	templateID         string
	responses          string
	penalizeUnanswered bool
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "auditctl",
		Short:         "Score and verify compliance audits from template and answer files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log warnings to stderr")
	logger := func() *zap.Logger {
		if !verbose {
			return zap.NewNop()
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		return l
	}

	root.AddCommand(newScoreCmd(logger), newHashCmd(logger), newValidateCmd())
	return root
}

func addScoreFlags(cmd *cobra.Command, f *scoreFlags) {
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "template file (YAML or JSON)")
	cmd.Flags().StringVar(&f.templateID, "template-id", "", "template to use when the file holds several")
	cmd.Flags().StringVarP(&f.responses, "responses", "r", "", "answer sheet mapping item id to answer")
	cmd.Flags().BoolVar(&f.penalizeUnanswered, "penalize-unanswered", false, "count unanswered items against the score")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("responses")
}

func newScoreCmd(logger func() *zap.Logger) *cobra.Command {
	var f scoreFlags
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Print the audit result for an answer sheet as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := scoreFiles(cmd.Context(), f, logger())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	addScoreFlags(cmd, &f)
	return cmd
}

func newHashCmd(logger func() *zap.Logger) *cobra.Command {
	var f scoreFlags
	var short bool
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the calculation hash for an answer sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := scoreFiles(cmd.Context(), f, logger())
			if err != nil {
				return err
			}
			hash := res.CalculationHash
			if short {
				hash = scoring.ShortHash(hash)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	addScoreFlags(cmd, &f)
	cmd.Flags().BoolVar(&short, "short", false, "print the abbreviated hash")
	return cmd
}

// scoreFiles publishes the template into a throwaway store and scores the
// answers through the same service the server uses.
func scoreFiles(ctx context.Context, f scoreFlags, log *zap.Logger) (domain.AuditResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tpl, err := pickTemplate(f.template, f.templateID)
	if err != nil {
		return domain.AuditResult{}, err
	}
	raw, err := filestore.LoadResponsesFile(f.responses)
	if err != nil {
		return domain.AuditResult{}, err
	}

	var opts []scoring.Option
	if f.penalizeUnanswered {
		opts = append(opts, scoring.WithUnansweredPolicy(scoring.UnansweredPenalize))
	}
	store := memory.New()
	if err := store.SaveTemplate(ctx, tpl); err != nil {
		return domain.AuditResult{}, err
	}
	svc := audits.New(store, store, store, nil,
		audits.WithEngine(scoring.New(opts...)),
		audits.WithLogger(log))
	return svc.Score(ctx, tpl.ID, raw)
}

func pickTemplate(path, id string) (domain.ChecklistTemplate, error) {
	ts, err := filestore.LoadTemplateFile(path)
	if err != nil {
		return domain.ChecklistTemplate{}, err
	}
	if id == "" {
		if len(ts) > 1 {
			return domain.ChecklistTemplate{}, fmt.Errorf("%s holds %d templates; pick one with --template-id", path, len(ts))
		}
		return ts[0], nil
	}
	for _, t := range ts {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.ChecklistTemplate{}, fmt.Errorf("template %s not found in %s", id, path)
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <template-file>...",
		Short: "Check template files and exit non-zero when any has errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				ts, err := filestore.LoadTemplateFile(path)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", path, err)
					invalid++
					continue
				}
				for _, t := range ts {
					issues := templates.Validate(t)
					if templates.HasErrors(issues) {
						invalid++
					}
					if len(issues) == 0 {
						fmt.Fprintf(out, "%s: %s@%s ok\n", path, t.ID, t.Version)
						continue
					}
					for _, is := range issues {
						fmt.Fprintf(out, "%s: %s@%s %s %s: %s\n", path, t.ID, t.Version, is.Severity, is.Code, is.Message)
					}
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d invalid template(s)", invalid)
			}
			return nil
		},
	}
}
