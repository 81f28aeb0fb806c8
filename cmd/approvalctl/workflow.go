package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyjia/finance-approval/internal/application/workflow"
	"github.com/garyjia/finance-approval/internal/container"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	domainwf "github.com/garyjia/finance-approval/internal/domain/workflow"
)

func (c *cli) actionCmd() *cobra.Command {
	var (
		version                      int64
		signature, comments, summary string
	)
	cmd := &cobra.Command{
		Use:   "action <id> <ACTION>",
		Short: "Apply SUBMIT, APPROVE, REJECT, RETURN_WITH_OBJECTION or RESUBMIT",
		Long: `Apply an action as --actor-id in --role.
--version is the version you last saw; when omitted the stored version is used.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := c.role()
			if err != nil {
				return err
			}
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				expected := version
				if expected == 0 {
					d, err := ctr.Documents().Get(ctx, args[0])
					if err != nil {
						return err
					}
					expected = d.Version
				}

				outcome, err := ctr.Workflow().Engine.ApplyAction(ctx, workflow.ActionRequest{
					DocumentID:       args[0],
					ExpectedVersion:  expected,
					Action:           domainwf.Action(strings.ToUpper(args[1])),
					ActorRole:        role,
					ActorID:          c.actorID(),
					DigitalSignature: signature,
					Comments:         comments,
					ChangeSummary:    summary,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if c.jsonOutput() {
					return printJSON(out, outcome)
				}
				fmt.Fprintf(out, "%s -> %s (version %d)\n", outcome.Event.FromStage, outcome.Stage, outcome.Version)
				if outcome.Effect != "" {
					fmt.Fprintf(out, "effect: %s\n", outcome.Effect)
				}
				if outcome.PayableEntryID != "" {
					fmt.Fprintf(out, "payable entry: %s\n", outcome.PayableEntryID)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&version, "version", 0, "expected document version")
	cmd.Flags().StringVar(&signature, "signature", "", "digital signature")
	cmd.Flags().StringVar(&comments, "comments", "", "comments, required for REJECT and RETURN_WITH_OBJECTION")
	cmd.Flags().StringVar(&summary, "change-summary", "", "what changed, recorded on RESUBMIT")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func (c *cli) observationCmd() *cobra.Command {
	obs := &cobra.Command{Use: "observation", Aliases: []string{"obs"}, Short: "Raise, answer and list audit observations"}
	obs.AddCommand(c.observationListCmd())
	obs.AddCommand(c.observationRaiseCmd())
	obs.AddCommand(c.observationAnswerCmd())
	return obs
}

func (c *cli) observationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <document-id>",
		Short: "List observations across all cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				observations, err := ctr.Workflow().Observations.List(ctx, args[0])
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					if observations == nil {
						observations = []entity.Observation{}
					}
					return printJSON(cmd.OutOrStdout(), observations)
				}
				renderObservations(cmd.OutOrStdout(), observations)
				return nil
			})
		},
	}
}

func (c *cli) observationRaiseCmd() *cobra.Command {
	var text, severity string
	cmd := &cobra.Command{
		Use:   "raise <document-id>",
		Short: "Raise an observation while the document is at an audit-capable stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sev, err := entity.ParseSeverity(severity)
			if err != nil {
				return err
			}
			role, err := c.role()
			if err != nil {
				return err
			}
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				o, err := ctr.Workflow().Observations.Raise(ctx, args[0], text, sev, c.actorID(), role)
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd.OutOrStdout(), o)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "observation %s raised (%s, cycle %d)\n", o.ID, o.Severity, o.Cycle)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "observation text")
	cmd.Flags().StringVar(&severity, "severity", string(entity.SeverityMedium), "low, medium, high or critical")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func (c *cli) observationAnswerCmd() *cobra.Command {
	var answer string
	cmd := &cobra.Command{
		Use:   "answer <document-id> <observation-id>",
		Short: "Answer an observation; answers are final",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				o, err := ctr.Workflow().Observations.Answer(ctx, args[0], args[1], answer, c.actorID())
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd.OutOrStdout(), o)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "observation %s answered\n", o.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&answer, "answer", "", "answer text")
	_ = cmd.MarkFlagRequired("answer")
	return cmd
}

func (c *cli) settleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle <document-id>",
		Short: "Ensure an approved document has its accounts-payable entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				entry, err := ctr.Workflow().Effects.Settle(ctx, args[0], c.actorID())
				if err != nil {
					return err
				}
				if c.jsonOutput() {
					return printJSON(cmd.OutOrStdout(), entry)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "payable %s bill %s due %s\n",
					entry.ID, entry.BillNumber, entry.DueDate.Format("2006-01-02"))
				return nil
			})
		},
	}
}
