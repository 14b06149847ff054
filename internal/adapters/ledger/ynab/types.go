package ynab

import "github.com/eshaffer321/nubank-ynab-sync/internal/domain/transaction"

// types available at https://api.ynab.com/v1#/Transactions/createTransaction

type transactionPayload struct {
	AccountID string                 `json:"account_id"`
	Date      string                 `json:"date"`
	Amount    transaction.Milliunits `json:"amount"`
	PayeeName string                 `json:"payee_name,omitempty"`
	Memo      string                 `json:"memo,omitempty"`
	ImportID  string                 `json:"import_id"`
}

type createTransactionsRequest struct {
	Transactions []transactionPayload `json:"transactions"`
}

type createTransactionsResponse struct {
	Data ImportResult `json:"data"`
}

type errorResponse struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}

// ImportResult is the ledger's answer to a batch import.
type ImportResult struct {
	TransactionIDs     []string              `json:"transaction_ids"`
	Transactions       []ImportedTransaction `json:"transactions"`
	DuplicateImportIDs []string              `json:"duplicate_import_ids"`
}

// FindByImportID returns the created transaction carrying importID.
func (r *ImportResult) FindByImportID(importID string) (ImportedTransaction, bool) {
	for _, tx := range r.Transactions {
		if tx.ImportID == importID {
			return tx, true
		}
	}
	return ImportedTransaction{}, false
}

// ImportedTransaction is the ledger's record of a created transaction.
type ImportedTransaction struct {
	ID        string                 `json:"id"`
	ImportID  string                 `json:"import_id"`
	Date      string                 `json:"date"`
	Amount    transaction.Milliunits `json:"amount"`
	PayeeName string                 `json:"payee_name"`
	Memo      string                 `json:"memo"`
	AccountID string                 `json:"account_id"`
	Cleared   string                 `json:"cleared"`
}
