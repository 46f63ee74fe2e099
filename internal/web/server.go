package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/logger"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/oracle"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/pool"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/registry"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/state"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/types"
	"github.com/fiit-ba/pool-based-liquidity-protocol/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the pool manager and loan registry over HTTP.
type WebServer struct {
	router   *mux.Router
	port     string
	manager  *pool.Manager
	registry *registry.Registry
	rates    *oracle.Static
	started  time.Time
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, manager *pool.Manager, reg *registry.Registry, rates *oracle.Static) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:   mux.NewRouter(),
		port:     port,
		manager:  manager,
		registry: reg,
		rates:    rates,
		started:  time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/{asset}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/loans", ws.handleGetLoans).Methods("GET")
	api.HandleFunc("/loans/{id}", ws.handleGetLoan).Methods("GET")
	api.HandleFunc("/loans/{id}/history", ws.handleGetLoanHistory).Methods("GET")
	api.HandleFunc("/loans/{id}/receipts", ws.handleGetLoanReceipts).Methods("GET")
	api.HandleFunc("/rates", ws.handleGetRate).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")

	api.HandleFunc("/lend", ws.handleLend).Methods("POST")
	api.HandleFunc("/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/borrow", ws.handleBorrow).Methods("POST")
	api.HandleFunc("/repay", ws.handleRepay).Methods("POST")
	api.HandleFunc("/liquidate", ws.handleLiquidate).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Get runtime memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Get database connection status
	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	if !dbHealthy {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":         overallStatus,
		"timestamp":      time.Now().UTC(),
		"uptime_seconds": int64(time.Since(ws.started).Seconds()),
		"database": map[string]interface{}{
			"connected": dbHealthy,
		},
		"pools": map[string]interface{}{
			"count":  len(ws.manager.Pools()),
			"paused": ws.manager.Paused(),
		},
		"loans": map[string]interface{}{
			"last_loan_id": ws.registry.LastLoanID(),
			"open_count":   len(ws.registry.LoanIDs()),
		},
		"memory": map[string]interface{}{
			"alloc_mb":      memStats.Alloc / 1024 / 1024,
			"sys_mb":        memStats.Sys / 1024 / 1024,
			"num_gc":        memStats.NumGC,
			"num_goroutine": runtime.NumGoroutine(),
		},
	}

	statusCode := http.StatusOK
	if !dbHealthy {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPools returns every accepted lending pool
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools := ws.manager.Pools()

	response := map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPool returns a single pool by asset identifier
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset := types.AssetID(vars["asset"])

	info, err := ws.manager.PoolInfoFor(asset)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, info)
}

// handleGetLoans returns every loan currently tracked by the registry
func (ws *WebServer) handleGetLoans(w http.ResponseWriter, r *http.Request) {
	ids := ws.registry.LoanIDs()
	loans := make([]types.LoanInfo, 0, len(ids))
	for _, id := range ids {
		info, err := ws.registry.GetLoanInfo(id)
		if err != nil {
			continue
		}
		loans = append(loans, info)
	}

	response := map[string]interface{}{
		"loans": loans,
		"count": len(loans),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetLoan returns a specific loan with its current outstanding debt
func (ws *WebServer) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.parseLoanID(w, r)
	if !ok {
		return
	}

	info, err := ws.registry.GetLoanInfo(id)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Loan not found")
		return
	}

	response := map[string]interface{}{
		"loan": info,
	}
	if owed, err := ws.manager.OutstandingDebt(id); err == nil {
		response["outstanding_debt"] = owed.String()
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetLoanHistory returns the persisted snapshot trail for a loan
func (ws *WebServer) handleGetLoanHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.parseLoanID(w, r)
	if !ok {
		return
	}

	history, err := state.GetLoanHistory(id)
	if err != nil {
		webLogger.Error().Err(err).Uint64("loanId", uint64(id)).Msg("Failed to get loan history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve loan history")
		return
	}

	response := map[string]interface{}{
		"loan_id":   id,
		"snapshots": history,
		"count":     len(history),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetLoanReceipts returns every operation receipt touching a loan
func (ws *WebServer) handleGetLoanReceipts(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.parseLoanID(w, r)
	if !ok {
		return
	}

	receipts, err := state.GetReceiptsForLoan(id)
	if err != nil {
		webLogger.Error().Err(err).Uint64("loanId", uint64(id)).Msg("Failed to get loan receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve loan receipts")
		return
	}

	response := map[string]interface{}{
		"loan_id":  id,
		"receipts": receipts,
		"count":    len(receipts),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetRate returns the configured conversion rate for an asset pair
func (ws *WebServer) handleGetRate(w http.ResponseWriter, r *http.Request) {
	from := types.AssetID(r.URL.Query().Get("from"))
	to := types.AssetID(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Query parameters 'from' and 'to' are required")
		return
	}

	rate := ws.rates.Rate(from, to)

	response := map[string]interface{}{
		"from": from,
		"to":   to,
		"rate": rate.String(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetReceipts returns recent operation receipts
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	receipts, err := state.GetRecentReceipts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	response := map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

type lendRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// handleLend deposits assets into a pool on behalf of the caller
func (ws *WebServer) handleLend(w http.ResponseWriter, r *http.Request) {
	var req lendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount: "+err.Error())
		return
	}

	if err := ws.manager.Lend(types.AccountID(req.Caller), types.AssetID(req.Asset), amount); err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"caller": req.Caller,
		"asset":  req.Asset,
		"amount": amount.String(),
	})
}

type withdrawRequest struct {
	Caller     string `json:"caller"`
	ClaimToken string `json:"claimToken"`
	Shares     string `json:"shares"`
}

// handleWithdraw redeems claim tokens for the underlying asset
func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	shares, err := utils.ParseAmount(req.Shares)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid share amount: "+err.Error())
		return
	}

	if err := ws.manager.Withdraw(types.AccountID(req.Caller), types.AssetID(req.ClaimToken), shares); err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"caller":     req.Caller,
		"claimToken": req.ClaimToken,
		"shares":     shares.String(),
	})
}

type borrowRequest struct {
	Caller     string `json:"caller"`
	Asset      string `json:"asset"`
	Collateral string `json:"collateral"`
	Amount     string `json:"amount"`
}

// handleBorrow opens a collateralized loan against a pool
func (ws *WebServer) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount: "+err.Error())
		return
	}

	loanID, err := ws.manager.Borrow(types.AccountID(req.Caller), types.AssetID(req.Asset), types.AssetID(req.Collateral), amount)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"caller":     req.Caller,
		"asset":      req.Asset,
		"collateral": req.Collateral,
		"amount":     amount.String(),
		"loan_id":    loanID,
	})
}

type repayRequest struct {
	Caller string `json:"caller"`
	LoanID uint64 `json:"loanId"`
	Amount string `json:"amount"`
}

// handleRepay repays a loan in full or in part
func (ws *WebServer) handleRepay(w http.ResponseWriter, r *http.Request) {
	var req repayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount: "+err.Error())
		return
	}

	settled, err := ws.manager.Repay(types.AccountID(req.Caller), types.LoanID(req.LoanID), amount)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"caller":  req.Caller,
		"loan_id": req.LoanID,
		"amount":  amount.String(),
		"settled": settled,
	})
}

type liquidateRequest struct {
	Caller string `json:"caller"`
	LoanID uint64 `json:"loanId"`
}

// handleLiquidate liquidates an undercollateralized loan
func (ws *WebServer) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := ws.manager.LiquidateLoan(types.AccountID(req.Caller), types.LoanID(req.LoanID)); err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"caller":  req.Caller,
		"loan_id": req.LoanID,
	})
}

func (ws *WebServer) parseLoanID(w http.ResponseWriter, r *http.Request) (types.LoanID, bool) {
	vars := mux.Vars(r)
	idStr := vars["id"]

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid loan ID")
		return 0, false
	}

	return types.LoanID(id), true
}

// writeOperationError maps protocol errors to HTTP status codes
func (ws *WebServer) writeOperationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pool.ErrPaused):
		status = http.StatusServiceUnavailable
	case errors.Is(err, pool.ErrAccessDenied),
		errors.Is(err, registry.ErrNotLoanOwner):
		status = http.StatusForbidden
	case errors.Is(err, pool.ErrAssetNotFound),
		errors.Is(err, registry.ErrLoanNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pool.ErrAssetAlreadySupported),
		errors.Is(err, pool.ErrCollateralAlreadySupported),
		errors.Is(err, pool.ErrLoanAlreadyLiquidated),
		errors.Is(err, pool.ErrPoolNotEmpty):
		status = http.StatusConflict
	case errors.Is(err, pool.ErrCollateralNotSupported),
		errors.Is(err, pool.ErrAmountNotSupported),
		errors.Is(err, pool.ErrInsufficientAllowance),
		errors.Is(err, pool.ErrInsufficientBalance),
		errors.Is(err, pool.ErrInsufficientPoolLiquidity),
		errors.Is(err, pool.ErrLoanNotLiquidatable):
		status = http.StatusUnprocessableEntity
	}

	ws.writeErrorResponse(w, status, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rww *responseWriterWrapper) WriteHeader(code int) {
	rww.statusCode = code
	rww.ResponseWriter.WriteHeader(code)
}
