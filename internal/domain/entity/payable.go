package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Departments known to the accounts-payable ledger.
const (
	DepartmentHR          = "hr"
	DepartmentAdmin       = "admin"
	DepartmentProcurement = "procurement"
	DepartmentSales       = "sales"
	DepartmentFinance     = "finance"
	DepartmentAudit       = "audit"
	DepartmentGeneral     = "general"
)

// AccountsPayableEntry is the ledger bill created once per approved document
type AccountsPayableEntry struct {
	ID               string          `json:"id"`
	SourceDocumentID string          `json:"source_document_id"`
	BillNumber       string          `json:"bill_number"`
	VendorName       string          `json:"vendor_name"`
	Department       string          `json:"department"`
	Amount           decimal.Decimal `json:"amount"`
	BillDate         time.Time       `json:"bill_date"`
	DueDate          time.Time       `json:"due_date"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
}
