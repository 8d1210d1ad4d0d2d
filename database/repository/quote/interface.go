package quoteRepo

import (
	"context"

	"visapoint/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// QuoteRepository persists translation quotes and the workflow status of the
// documents they price. The quote-approval webhook family drives it.
type QuoteRepository interface {
	GetPendingByDocumentID(ctx context.Context, documentID string) ([]models.TranslationQuote, error)
	ApproveQuote(ctx context.Context, quoteID string) error
	AdvanceDocumentStatus(ctx context.Context, documentID, from, to string) (bool, error)
}

type mongoQuoteRepo struct {
	quoteColl *mongo.Collection
	docColl   *mongo.Collection
}

// NewMongoQuoteRepo returns a new QuoteRepository instance using MongoDB.
func NewMongoQuoteRepo(db *mongo.Database) QuoteRepository {
	return &mongoQuoteRepo{
		quoteColl: db.Collection("translation_quotes"),
		docColl:   db.Collection("case_documents"),
	}
}
