// Package httpapi exposes the ledger engine over HTTP: one endpoint to
// ingest a transaction record, one to read the balance table. All engine
// access is serialized by a single mutex, satisfying the single-writer rule
// for operations sharing a client or transaction id.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/payments/internal/csvio"
	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownGracePeriod = 5 * time.Second

// Run boots the ingestion API and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg Config, ledgerEngine *engine.Engine, logger *zap.Logger) error {
	handler := &httpHandler{
		logger:       logger,
		ledgerEngine: ledgerEngine,
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: setupRouter(cfg, handler),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ingestion api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Origin", "Accept"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/transactions", handler.handleTransaction)
	api.GET("/balances", handler.handleBalances)

	return router
}

type httpHandler struct {
	logger       *zap.Logger
	ledgerEngine *engine.Engine
	mutex        sync.Mutex
}

type transactionRequest struct {
	Type   string `json:"type"`
	Client uint16 `json:"client"`
	Tx     uint32 `json:"tx"`
	Amount string `json:"amount"`
}

func (handler *httpHandler) handleTransaction(ctx *gin.Context) {
	var request transactionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}

	inputRecord := csvio.Record{
		Kind:   request.Type,
		Client: engine.ClientID(request.Client),
		Tx:     engine.TransactionID(request.Tx),
		Amount: request.Amount,
	}
	transaction, err := inputRecord.Transaction()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_record", err.Error()))
		return
	}

	handler.mutex.Lock()
	acceptError := handler.ledgerEngine.Accept(ctx.Request.Context(), transaction)
	balance, _ := handler.ledgerEngine.Balance(transaction.ClientID())
	handler.mutex.Unlock()

	if acceptError != nil {
		handler.logger.Info("transaction rejected",
			zap.Uint32("tx", uint32(transaction.TransactionID())),
			zap.Error(acceptError),
		)
		ctx.JSON(statusForError(acceptError), errorResponse(codeForError(acceptError), acceptError.Error()))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"balance": balancePayloadFrom(balance)})
}

func (handler *httpHandler) handleBalances(ctx *gin.Context) {
	handler.mutex.Lock()
	balances := handler.ledgerEngine.Balances()
	handler.mutex.Unlock()

	payload := make([]balancePayload, 0, len(balances))
	for _, balance := range balances {
		payload = append(payload, balancePayloadFrom(balance))
	}
	ctx.JSON(http.StatusOK, gin.H{"balances": payload})
}

type balancePayload struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

func balancePayloadFrom(balance engine.ClientBalance) balancePayload {
	return balancePayload{
		Client:    uint16(balance.ClientID),
		Available: balance.Available.String(),
		Held:      balance.Held.String(),
		Total:     balance.Total.String(),
		Locked:    balance.Locked,
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrDisputedTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, engine.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrDuplicateTransaction),
		errors.Is(err, engine.ErrDisputeClientMismatch),
		errors.Is(err, engine.ErrResolveClientMismatch),
		errors.Is(err, engine.ErrChargebackClientMismatch),
		errors.Is(err, engine.ErrInvalidStatusTransition),
		errors.Is(err, engine.ErrDisputeWithdrawalNotSupported):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func codeForError(err error) string {
	switch {
	case errors.Is(err, engine.ErrDuplicateTransaction):
		return "duplicate_transaction"
	case errors.Is(err, engine.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, engine.ErrDisputedTransactionNotFound):
		return "transaction_not_found"
	case errors.Is(err, engine.ErrDisputeWithdrawalNotSupported):
		return "dispute_withdrawal_not_supported"
	case errors.Is(err, engine.ErrDisputeClientMismatch),
		errors.Is(err, engine.ErrResolveClientMismatch),
		errors.Is(err, engine.ErrChargebackClientMismatch):
		return "client_mismatch"
	case errors.Is(err, engine.ErrInvalidStatusTransition):
		return "invalid_status_transition"
	case errors.Is(err, engine.ErrAccountLocked):
		return "account_locked"
	}
	return "rejected"
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
