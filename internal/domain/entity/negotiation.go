package entity

// Negotiation statuses. Accepted and rejected are terminal; countered is a
// response verb that results in a fresh pending offer from the other party,
// the original message keeps its pending status.
const (
	NegotiationPending   = "pending"
	NegotiationAccepted  = "accepted"
	NegotiationRejected  = "rejected"
	NegotiationCountered = "countered"
)

// Negotiation is a price offer embedded in a chat message.
type Negotiation struct {
	ProductName   string  `json:"product_name" firestore:"productName"`
	OriginalPrice float64 `json:"original_price" firestore:"originalPrice"`
	ProposedPrice float64 `json:"proposed_price" firestore:"proposedPrice"`
	Quantity      int     `json:"quantity" firestore:"quantity"`
	Status        string  `json:"status" firestore:"status"`
}

// IsResponseStatus reports whether s is a valid response to a pending offer.
func IsResponseStatus(s string) bool {
	return s == NegotiationAccepted || s == NegotiationRejected || s == NegotiationCountered
}

// Counter derives the responder's offer: same product and quantity, new
// price, pending again.
func (n *Negotiation) Counter(price float64) *Negotiation {
	return &Negotiation{
		ProductName:   n.ProductName,
		OriginalPrice: n.OriginalPrice,
		ProposedPrice: price,
		Quantity:      n.Quantity,
		Status:        NegotiationPending,
	}
}
