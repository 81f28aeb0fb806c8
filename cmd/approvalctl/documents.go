package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/garyjia/finance-approval/internal/application/service"
	"github.com/garyjia/finance-approval/internal/container"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	domainwf "github.com/garyjia/finance-approval/internal/domain/workflow"
)

func (c *cli) documentCmd() *cobra.Command {
	doc := &cobra.Command{Use: "document", Aliases: []string{"doc"}, Short: "Create and inspect documents"}
	doc.AddCommand(c.documentCreateCmd())
	doc.AddCommand(c.documentListCmd())
	doc.AddCommand(c.documentShowCmd())
	doc.AddCommand(c.documentHistoryCmd())
	doc.AddCommand(c.documentActionsCmd())
	return doc
}

func (c *cli) documentCreateCmd() *cobra.Command {
	var (
		kind, ref, amount, terms, vendor, dept string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft settlement or purchase order",
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("%w: amount %q is not a number", domainwf.ErrInvalidDocument, amount)
			}
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				d, err := ctr.Documents().Create(ctx, service.CreateDocumentRequest{
					Kind:            domainwf.Kind(strings.ToUpper(kind)),
					ReferenceNumber: ref,
					Amount:          amt,
					PaymentTerms:    terms,
					VendorName:      vendor,
					Department:      dept,
					CreatedBy:       c.actorID(),
				})
				if err != nil {
					return err
				}
				return c.renderDocument(cmd.OutOrStdout(), d)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(domainwf.KindSettlement), "SETTLEMENT or PURCHASE_ORDER")
	cmd.Flags().StringVar(&ref, "ref", "", "reference number, used as the bill number")
	cmd.Flags().StringVar(&amount, "amount", "0", "document amount")
	cmd.Flags().StringVar(&terms, "terms", "", "payment terms")
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor name")
	cmd.Flags().StringVar(&dept, "dept", "", "department")
	_ = cmd.MarkFlagRequired("vendor")
	return cmd
}

func (c *cli) documentListCmd() *cobra.Command {
	var (
		stage         string
		limit, offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, optionally filtered by stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				docs, err := ctr.Documents().List(ctx, domainwf.Stage(strings.ToUpper(stage)), limit, offset)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.jsonOutput() {
					return printJSON(out, docs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"ID", "Kind", "Reference", "Vendor", "Amount", "Stage", "Version"})
				for _, d := range docs {
					tw.AppendRow(table.Row{d.ID, d.Kind, d.ReferenceNumber, d.VendorName, d.Amount.StringFixed(2), d.Stage, d.Version})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "stage filter")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultPageSize, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func (c *cli) documentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document with its observations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				d, err := ctr.Documents().Get(ctx, args[0])
				if err != nil {
					return err
				}
				if err := c.renderDocument(cmd.OutOrStdout(), d); err != nil {
					return err
				}
				if !c.jsonOutput() && len(d.Observations) > 0 {
					renderObservations(cmd.OutOrStdout(), d.Observations)
				}
				return nil
			})
		},
	}
}

func (c *cli) documentHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the signed transition history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				history, err := ctr.Documents().History(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.jsonOutput() {
					return printJSON(out, history)
				}
				renderHistory(out, history)
				return nil
			})
		},
	}
}

func (c *cli) documentActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions <id>",
		Short: "List the actions --role may take now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := c.role()
			if err != nil {
				return err
			}
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				actions, err := ctr.Workflow().Engine.PermittedActions(ctx, args[0], role)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.jsonOutput() {
					if actions == nil {
						actions = []domainwf.Action{}
					}
					return printJSON(out, actions)
				}
				if len(actions) == 0 {
					fmt.Fprintf(out, "no actions available to %s\n", role)
					return nil
				}
				for _, a := range actions {
					fmt.Fprintln(out, a)
				}
				return nil
			})
		},
	}
}

func (c *cli) renderDocument(w io.Writer, d *entity.Document) error {
	if c.jsonOutput() {
		return printJSON(w, d)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendRows([]table.Row{
		{"ID", d.ID},
		{"Kind", d.Kind},
		{"Reference", d.ReferenceNumber},
		{"Vendor", d.VendorName},
		{"Department", d.Department},
		{"Amount", d.Amount.StringFixed(2)},
		{"Payment Terms", d.PaymentTerms},
		{"Stage", d.Stage},
		{"Status", d.BusinessStatus},
		{"Version", d.Version},
		{"Cycle", d.Cycle},
		{"Payable Created", d.AccountsPayableCreated},
	})
	if d.ReturnedFrom != "" {
		tw.AppendRow(table.Row{"Returned From", d.ReturnedFrom})
	}
	tw.Render()
	return nil
}

func renderHistory(w io.Writer, history []entity.WorkflowEvent) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"#", "From", "To", "Action", "Actor", "Role", "Comments", "At"})
	for _, h := range history {
		tw.AppendRow(table.Row{h.Sequence, h.FromStage, h.ToStage, h.Action, h.ActorID, h.ActorRole, h.Comments, h.Timestamp.Format("2006-01-02 15:04")})
	}
	tw.Render()
}

func renderObservations(w io.Writer, observations []entity.Observation) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Cycle", "Severity", "Text", "Answer"})
	for _, o := range observations {
		tw.AppendRow(table.Row{o.ID, o.Cycle, o.Severity, o.Text, o.Answer})
	}
	tw.Render()
}
