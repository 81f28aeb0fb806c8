package workflow

// Kind distinguishes the document families that have their own routing tables
type Kind string

const (
	KindSettlement    Kind = "SETTLEMENT"
	KindPurchaseOrder Kind = "PURCHASE_ORDER"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if the kind is known
func (k Kind) IsValid() bool {
	return k == KindSettlement || k == KindPurchaseOrder
}
