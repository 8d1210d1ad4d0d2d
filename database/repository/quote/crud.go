package quoteRepo

import (
	"context"
	"fmt"
	"time"

	"visapoint/models"

	"go.mongodb.org/mongo-driver/bson"
)

// GetPendingByDocumentID fetches all pending quotes linked to a document.
func (r *mongoQuoteRepo) GetPendingByDocumentID(ctx context.Context, documentID string) ([]models.TranslationQuote, error) {
	filter := bson.M{
		"document_id": documentID,
		"status":      models.QuoteStatusPending,
	}
	cursor, err := r.quoteColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding quotes for document %s: %w", documentID, err)
	}
	defer cursor.Close(ctx)

	var quotes []models.TranslationQuote
	if err := cursor.All(ctx, &quotes); err != nil {
		return nil, fmt.Errorf("error decoding quotes: %w", err)
	}
	return quotes, nil
}

// ApproveQuote marks a quote approved. Approving an already-approved quote is
// a no-op, which keeps webhook redeliveries harmless.
func (r *mongoQuoteRepo) ApproveQuote(ctx context.Context, quoteID string) error {
	filter := bson.M{"id": quoteID, "status": models.QuoteStatusPending}
	update := bson.M{"$set": bson.M{
		"status":      models.QuoteStatusApproved,
		"approved_at": time.Now().UTC(),
	}}
	if _, err := r.quoteColl.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error approving quote %s: %w", quoteID, err)
	}
	return nil
}

// AdvanceDocumentStatus moves a document's workflow status, conditional on
// the current status. Reports whether a document matched.
func (r *mongoQuoteRepo) AdvanceDocumentStatus(ctx context.Context, documentID, from, to string) (bool, error) {
	filter := bson.M{"id": documentID, "status": from}
	update := bson.M{"$set": bson.M{"status": to}}
	res, err := r.docColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error advancing document %s: %w", documentID, err)
	}
	return res.MatchedCount > 0, nil
}
