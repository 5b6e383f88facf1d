package entity

import "time"

// Invoice is a cleared, persisted invoice. InvoiceB64 holds the re-signed
// UBL document; Hash is the canonical-invoice-subset digest that the next
// submission from the same supplier must chain against via its PIH
// reference.
type Invoice struct {
	UUID       string
	Company    string
	InvoiceB64 string
	Hash       []byte
	CreatedAt  time.Time
}
