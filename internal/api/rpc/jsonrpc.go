// Package rpc exposes the password-manager ledger as a JSON-RPC 2.0 endpoint
// over HTTP. Mutating methods resolve the caller address from a bearer token
// issued by the wallet sign-in flow.
package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dcriggs/eth-password-manager/internal/logger"
	"github.com/dcriggs/eth-password-manager/internal/model"
	"github.com/dcriggs/eth-password-manager/internal/service"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

const maxRPCBodyBytes int64 = 1 << 20 // 1 MiB

// Handler dispatches JSON-RPC methods onto the ledger services.
type Handler struct {
	registry *service.Registry
	vault    *service.Vault
	sharing  *service.Sharing
	auth     *service.Auth
	tokens   *service.TokenService
	blobs    model.BlobStorage
	ctxMgr   model.ContextManager
	logger   *logger.Logger
}

func NewHandler(
	registry *service.Registry,
	vault *service.Vault,
	sharing *service.Sharing,
	auth *service.Auth,
	tokens *service.TokenService,
	blobs model.BlobStorage,
	ctxMgr model.ContextManager,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		registry: registry,
		vault:    vault,
		sharing:  sharing,
		auth:     auth,
		tokens:   tokens,
		blobs:    blobs,
		ctxMgr:   ctxMgr,
		logger:   logger,
	}
}

// Routes returns the HTTP handler serving the RPC endpoint at /rpc.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", h.handleRPC)
	return mux
}

func (h *Handler) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRPCBodyBytes)
	var req rpcRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "parse error"},
		})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeRPCInvalidRequest(w, req.ID)
		return
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPCInvalidRequest(w, req.ID)
		return
	}

	ctx := r.Context()
	if callerBound(req.Method) {
		caller, rpcErr := h.authorize(r)
		if rpcErr != nil {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
			return
		}
		ctx = h.ctxMgr.SetCallerToContext(ctx, caller)
	}

	started := time.Now()
	result, rpcErr := h.dispatch(ctx, req.Method, req.Params)
	if rpcErr != nil {
		h.logger.Error("rpc failed",
			"method", req.Method,
			"rpc_code", rpcErr.Code,
			"latency_ms", time.Since(started).Milliseconds())
	} else {
		h.logger.Info("rpc response",
			"method", req.Method,
			"latency_ms", time.Since(started).Milliseconds())
	}

	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	})
}

// callerBound reports whether the method acts on behalf of an authenticated
// caller. Public views and the sign-in flow stay callable without a token.
func callerBound(method string) bool {
	switch method {
	case "health_check",
		"pm_isUserRegistered",
		"pm_getUserPublicKey",
		"pm_authenticateUser",
		"blob_get":
		return false
	}
	if strings.HasPrefix(method, "auth_") {
		return false
	}
	return true
}

func (h *Handler) authorize(r *http.Request) (caller common.Address, rpcErr *rpcError) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == r.Header.Get("Authorization") {
		return common.Address{}, &rpcError{Code: codeUnauthorized, Message: "missing bearer token"}
	}

	caller, err := h.tokens.GetCaller(r.Context(), token)
	if err != nil {
		return common.Address{}, &rpcError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return caller, nil
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeRPCInvalidRequest(w http.ResponseWriter, id json.RawMessage) {
	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: -32600, Message: "invalid request"},
	})
}
