package models

import "time"

// Translation-quote and document workflow statuses touched by the
// quote-approval webhook family.
const (
	QuoteStatusPending  = "pending"
	QuoteStatusApproved = "approved"

	DocumentStatusQuoted     = "quoted"
	DocumentStatusInProgress = "in_progress"
)

// TranslationQuote is a priced quote for translating one uploaded document.
type TranslationQuote struct {
	ID         string    `bson:"id" json:"id"`
	DocumentID string    `bson:"document_id" json:"documentId"`
	Amount     int64     `bson:"amount" json:"amount"` // Minor currency units
	Currency   string    `bson:"currency" json:"currency"`
	Status     string    `bson:"status" json:"status"` // pending | approved
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	ApprovedAt time.Time `bson:"approved_at,omitempty" json:"approvedAt,omitempty"`
}

// CaseDocument is the uploaded document a quote refers to. Only the workflow
// status matters here; storage and content live elsewhere.
type CaseDocument struct {
	ID       string `bson:"id" json:"id"`
	ClientID string `bson:"client_id" json:"clientId"`
	Name     string `bson:"name" json:"name"`
	Status   string `bson:"status" json:"status"` // quoted | in_progress | ...
}
