package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/garyjia/finance-approval/internal/application/service"
	"github.com/garyjia/finance-approval/internal/container"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/pkg/database"
	"github.com/garyjia/finance-approval/migrations"
)

func (c *cli) payableCmd() *cobra.Command {
	payable := &cobra.Command{Use: "payable", Short: "Inspect the accounts-payable ledger"}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries by due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				entries, err := ctr.Documents().ListPayables(ctx, limit, offset)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.jsonOutput() {
					if entries == nil {
						entries = []*entity.AccountsPayableEntry{}
					}
					return printJSON(out, entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"Bill", "Vendor", "Department", "Amount", "Bill Date", "Due Date", "Document"})
				for _, e := range entries {
					tw.AppendRow(table.Row{
						e.BillNumber, e.VendorName, e.Department, e.Amount.StringFixed(2),
						e.BillDate.Format("2006-01-02"), e.DueDate.Format("2006-01-02"), e.SourceDocumentID,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", service.DefaultPageSize, "page size")
	list.Flags().IntVar(&offset, "offset", 0, "page offset")

	payable.AddCommand(list)
	return payable
}

func (c *cli) exportCmd() *cobra.Command {
	export := &cobra.Command{Use: "export", Short: "Write Excel workbooks into the export directory"}

	export.AddCommand(&cobra.Command{
		Use:   "document <id>",
		Short: "Export a document's approval sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				d, err := ctr.Documents().Get(ctx, args[0])
				if err != nil {
					return err
				}
				data, err := ctr.Exporter().ApprovalSheet(d)
				if err != nil {
					return err
				}
				path, err := ctr.Archive().Save(ctx, fmt.Sprintf("documents/%s_v%d.xlsx", d.ID, d.Version), data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	})

	export.AddCommand(&cobra.Command{
		Use:   "payables",
		Short: "Export the payable register",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				entries, err := ctr.Documents().ListPayables(ctx, 10000, 0)
				if err != nil {
					return err
				}
				data, err := ctr.Exporter().PayableRegister(entries)
				if err != nil {
					return err
				}
				name := fmt.Sprintf("payables/register_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
				path, err := ctr.Archive().Save(ctx, name, data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	})
	return export
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations and list the schema history",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Start already migrates; this reports what is recorded
			return c.withContainer(cmd.Context(), func(ctx context.Context, ctr *container.Container) error {
				m := database.NewMigrator(ctr.Database(), ctr.Logger())
				if _, err := m.Run(migrations.FS); err != nil {
					return err
				}
				applied, err := m.Applied()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.jsonOutput() {
					return printJSON(out, applied)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"Version", "Name", "Applied At"})
				for _, a := range applied {
					tw.AppendRow(table.Row{a.Version, a.Name, a.AppliedAt.Format(time.RFC3339)})
				}
				tw.Render()
				return nil
			})
		},
	}
}
