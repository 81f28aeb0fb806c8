package effects

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

var ledgerDepartments = []string{
	entity.DepartmentHR,
	entity.DepartmentAdmin,
	entity.DepartmentProcurement,
	entity.DepartmentSales,
	entity.DepartmentFinance,
	entity.DepartmentAudit,
	entity.DepartmentGeneral,
}

// NewPayableEntry builds the ledger entry for an approved document.
// The bill is dated today (UTC midnight) and due dueDays later.
func NewPayableEntry(doc *entity.Document, actorID string, now time.Time, dueDays int) *entity.AccountsPayableEntry {
	billDate := now.UTC().Truncate(24 * time.Hour)

	vendor := doc.VendorName
	if strings.TrimSpace(vendor) == "" {
		vendor = "Unknown Vendor"
	}

	return &entity.AccountsPayableEntry{
		ID:               uuid.NewString(),
		SourceDocumentID: doc.ID,
		BillNumber:       BillNumber(doc),
		VendorName:       vendor,
		Department:       MapDepartment(doc.Department),
		Amount:           doc.Amount,
		BillDate:         billDate,
		DueDate:          billDate.AddDate(0, 0, dueDays),
		CreatedBy:        actorID,
		CreatedAt:        now,
	}
}

// BillNumber uses the document's reference number, or a kind prefix plus the tail of its ID
func BillNumber(doc *entity.Document) string {
	if ref := strings.TrimSpace(doc.ReferenceNumber); ref != "" {
		return ref
	}

	prefix := "PS-"
	if doc.Kind == workflow.KindPurchaseOrder {
		prefix = "PO-"
	}

	id := doc.ID
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return prefix + id
}

// MapDepartment folds a free-text department into one the ledger accepts
func MapDepartment(dept string) string {
	d := strings.ToLower(strings.TrimSpace(dept))
	if d == "" {
		return entity.DepartmentGeneral
	}
	for _, valid := range ledgerDepartments {
		if d == valid || strings.Contains(d, valid) {
			return valid
		}
	}
	return entity.DepartmentGeneral
}
