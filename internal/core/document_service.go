package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DocumentType prefixes the human-facing number of a workflow document.
type DocumentType string

const (
	DocRequisition     DocumentType = "REQ"
	DocCountSession    DocumentType = "CNT"
	DocPurchaseRequest DocumentType = "PR"
)

// DocumentService hands out gapless document numbers.
type DocumentService interface {
	// NextNumberTx assigns the next number for docType in the year of at, inside the
	// caller's transaction. A rolled-back transaction releases the number.
	NextNumberTx(ctx context.Context, tx pgx.Tx, docType DocumentType, at time.Time) (string, error)
}

type documentService struct{}

func NewDocumentService() DocumentService {
	return &documentService{}
}

func (s *documentService) NextNumberTx(ctx context.Context, tx pgx.Tx, docType DocumentType, at time.Time) (string, error) {
	year := at.Year()

	// Concurrency-safe gapless sequence generation
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (type_code, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (type_code, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number`,
		string(docType), year,
	).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}

	return FormatDocumentNumber(docType, year, lastNumber), nil
}

// FormatDocumentNumber renders e.g. "REQ-2026-00042".
func FormatDocumentNumber(docType DocumentType, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", docType, year, n)
}
