// Package export renders approval records to Excel workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/domain/entity"
)

// Sheet names
const (
	SheetSummary      = "Summary"
	SheetHistory      = "History"
	SheetObservations = "Observations"
	SheetPayables     = "Payables"
)

const timeLayout = "2006-01-02 15:04:05"

// Exporter builds workbooks from documents and ledger entries
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new Exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// ApprovalSheet renders a document's summary, history and observations.
// doc must carry its History and Observations.
func (e *Exporter) ApprovalSheet(doc *entity.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Document ID", doc.ID},
		{"Kind", string(doc.Kind)},
		{"Reference", doc.ReferenceNumber},
		{"Vendor", doc.VendorName},
		{"Department", doc.Department},
		{"Amount", doc.Amount.StringFixed(2)},
		{"Payment Terms", doc.PaymentTerms},
		{"Stage", string(doc.Stage)},
		{"Business Status", string(doc.BusinessStatus)},
		{"Version", doc.Version},
		{"Cycle", doc.Cycle},
		{"Sent To Finance", doc.SentToFinance},
		{"Payable Created", doc.AccountsPayableCreated},
		{"Change Summary", doc.ResubmissionChangeSummary},
		{"Created By", doc.CreatedBy},
		{"Created At", doc.CreatedAt.Format(timeLayout)},
		{"Updated At", doc.UpdatedAt.Format(timeLayout)},
	}
	if err := e.writeRows(f, SheetSummary, nil, summary); err != nil {
		return nil, err
	}

	history := make([][]interface{}, 0, len(doc.History))
	for _, h := range doc.History {
		history = append(history, []interface{}{
			h.Sequence,
			h.Timestamp.Format(timeLayout),
			string(h.FromStage),
			string(h.ToStage),
			string(h.Action),
			h.ActorID,
			string(h.ActorRole),
			h.DigitalSignature,
			h.Comments,
		})
	}
	if err := e.writeSheet(f, SheetHistory,
		[]interface{}{"#", "Timestamp", "From", "To", "Action", "Actor", "Role", "Signature", "Comments"},
		history,
	); err != nil {
		return nil, err
	}

	observations := make([][]interface{}, 0, len(doc.Observations))
	for _, o := range doc.Observations {
		answeredAt := ""
		if o.AnsweredAt != nil {
			answeredAt = o.AnsweredAt.Format(timeLayout)
		}
		observations = append(observations, []interface{}{
			o.Cycle,
			string(o.Severity),
			o.Text,
			o.RaisedBy,
			o.RaisedAt.Format(timeLayout),
			o.Answer,
			o.AnsweredBy,
			answeredAt,
		})
	}
	if err := e.writeSheet(f, SheetObservations,
		[]interface{}{"Cycle", "Severity", "Observation", "Raised By", "Raised At", "Answer", "Answered By", "Answered At"},
		observations,
	); err != nil {
		return nil, err
	}

	e.logger.Info("Approval sheet rendered",
		zap.String("document_id", doc.ID),
		zap.Int("history", len(doc.History)),
		zap.Int("observations", len(doc.Observations)))

	return e.bytes(f)
}

// PayableRegister renders the accounts-payable ledger, one row per entry
func (e *Exporter) PayableRegister(entries []*entity.AccountsPayableEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPayables); err != nil {
		return nil, fmt.Errorf("failed to name payables sheet: %w", err)
	}

	rows := make([][]interface{}, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []interface{}{
			entry.BillNumber,
			entry.SourceDocumentID,
			entry.VendorName,
			entry.Department,
			entry.Amount.StringFixed(2),
			entry.BillDate.Format(time.DateOnly),
			entry.DueDate.Format(time.DateOnly),
			entry.CreatedBy,
		})
	}
	if err := e.writeRows(f, SheetPayables,
		[]interface{}{"Bill Number", "Document", "Vendor", "Department", "Amount", "Bill Date", "Due Date", "Created By"},
		rows,
	); err != nil {
		return nil, err
	}

	e.logger.Info("Payable register rendered", zap.Int("entries", len(entries)))
	return e.bytes(f)
}

// writeSheet adds a new sheet and fills it
func (e *Exporter) writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	return e.writeRows(f, sheet, header, rows)
}

// writeRows writes an optional bold header row followed by rows
func (e *Exporter) writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	row := 1
	if header != nil {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &header); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err == nil {
			end, _ := excelize.CoordinatesToCellName(len(header), row)
			if err := f.SetCellStyle(sheet, cell, end, style); err != nil {
				e.logger.Warn("Failed to style header", zap.String("sheet", sheet), zap.Error(err))
			}
		}
		row++
	}

	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
		}
		row++
	}
	return nil
}

func (e *Exporter) bytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
