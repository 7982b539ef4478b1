package dto

import (
	"time"

	"github.com/SscSPs/txn_processor/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransactionResponse is the operator view of a transaction.
type TransactionResponse struct {
	TransactionID   string           `json:"transactionID"`
	UserID          string           `json:"userID"`
	Type            string           `json:"type"`
	Status          string           `json:"status"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	SourceAccountID string           `json:"sourceAccountID,omitempty"`
	TargetAccountID string           `json:"targetAccountID,omitempty"`
	Description     string           `json:"description,omitempty"`
	Category        string           `json:"category,omitempty"`
	RejectionCode   string           `json:"rejectionCode,omitempty"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	LocalAmount     *decimal.Decimal `json:"localAmount,omitempty"`
	FXRate          *decimal.Decimal `json:"fxRate,omitempty"`
	CorrelationID   string           `json:"correlationID,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	ProcessedAt     *time.Time       `json:"processedAt,omitempty"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:   txn.ID,
		UserID:          txn.UserID,
		Type:            string(txn.Type),
		Status:          string(txn.Status),
		Amount:          txn.Amount.Amount,
		Currency:        txn.Amount.Currency,
		SourceAccountID: txn.SourceAccount.AccountID,
		TargetAccountID: txn.TargetAccount,
		Description:     txn.Description,
		Category:        txn.Category,
		LocalAmount:     txn.LocalAmount,
		FXRate:          txn.FXRate,
		CorrelationID:   txn.CorrelationID,
		CreatedAt:       txn.CreatedAt,
		ProcessedAt:     txn.ProcessedAt,
	}
	if txn.Rejection != nil {
		resp.RejectionCode = string(txn.Rejection.Code)
		resp.RejectionReason = txn.Rejection.Detail
	}
	return resp
}

// ListTransactionsParams holds the query parameters for listing transactions.
type ListTransactionsParams struct {
	Status    string `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED"`
	UserID    string `form:"userID" binding:"omitempty,uuid"`
	Limit     int    `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken string `form:"nextToken"`
}

// ListTransactionsResponse is one page of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToListTransactionsResponse converts a page of domain transactions.
func ToListTransactionsResponse(txns []domain.Transaction, nextToken *string) ListTransactionsResponse {
	list := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		list = append(list, ToTransactionResponse(&txns[i]))
	}
	return ListTransactionsResponse{Transactions: list, NextToken: nextToken}
}
