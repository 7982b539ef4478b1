package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/txn_processor/internal/apperrors"
	"github.com/SscSPs/txn_processor/internal/core/domain"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/SscSPs/txn_processor/internal/dto"
	"github.com/SscSPs/txn_processor/internal/middleware"
	"github.com/gin-gonic/gin"
)

// transactionHandler handles HTTP requests related to processed transactions.
type transactionHandler struct {
	transactionService portssvc.TransactionReaderSvc
}

// newTransactionHandler creates a new transactionHandler.
func newTransactionHandler(ts portssvc.TransactionReaderSvc) *transactionHandler {
	return &transactionHandler{
		transactionService: ts,
	}
}

// RegisterTransactionRoutes registers routes related to transactions.
func RegisterTransactionRoutes(rg *gin.RouterGroup, transactionService portssvc.TransactionReaderSvc) {
	h := newTransactionHandler(transactionService)

	transactions := rg.Group("/transactions")
	{
		transactions.GET("", h.listTransactions)
		transactions.GET("/:transactionID", h.getTransaction)
	}
}

// getTransaction godoc
// @Summary Get a transaction by ID
// @Description Retrieves the current processing state of a single transaction
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID (UUID)"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid transaction ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to retrieve transaction"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /transactions/{transactionID} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")

	principal, _ := middleware.GetUserIDFromContext(c)
	logger = logger.With(slog.String("transaction_id", transactionID), slog.String("principal", principal))

	txn, err := h.transactionService.GetTransactionByID(c.Request.Context(), transactionID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Invalid transaction ID", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Transaction not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		default:
			logger.Error("Failed to get transaction", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transaction"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// listTransactions godoc
// @Summary List transactions
// @Description Lists transactions newest first, optionally filtered by status or user
// @Tags transactions
// @Produce  json
// @Param   status query string false "Processing status" Enums(PENDING, APPROVED, REJECTED)
// @Param   userID query string false "User ID (UUID)"
// @Param   limit query int false "Page size" default(20) minimum(1) maximum(100)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list transactions"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /transactions [get]
func (h *transactionHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Invalid list transactions query", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	filter := domain.TransactionFilter{
		Status: domain.TransactionStatus(params.Status),
		UserID: params.UserID,
	}
	var nextToken *string
	if params.NextToken != "" {
		nextToken = &params.NextToken
	}

	txns, next, err := h.transactionService.ListTransactions(c.Request.Context(), filter, params.Limit, nextToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Rejected list transactions request", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
			return
		}
		logger.Error("Failed to list transactions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListTransactionsResponse(txns, next))
}
