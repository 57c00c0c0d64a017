package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Document type codes numbered through document_sequences.
const (
	DocTypeOrder = "PED"
)

// DocumentService hands out gapless document numbers.
type DocumentService interface {
	// NextNumberTx increments the counter for typeCode inside the caller's
	// transaction. The counter row stays locked until the caller commits or
	// rolls back, so concurrent callers are serialized per type.
	NextNumberTx(ctx context.Context, tx pgx.Tx, typeCode string) (string, error)
}

type documentService struct{}

func NewDocumentService() DocumentService {
	return &documentService{}
}

func (s *documentService) NextNumberTx(ctx context.Context, tx pgx.Tx, typeCode string) (string, error) {
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (type_code, last_number)
		VALUES ($1, 1)
		ON CONFLICT (type_code)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, typeCode).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}
	return formatDocumentNumber(typeCode, lastNumber), nil
}

func formatDocumentNumber(typeCode string, n int64) string {
	return fmt.Sprintf("%s-%06d", typeCode, n)
}
