package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedchain/core/state"
	"feedchain/host"
	"feedchain/native/social"
	"feedchain/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeFeeDenied      = -32030
)

// Server exposes the social contract over JSON-RPC 2.0. Mutating methods run
// the host runtime to quiescence under the write lock; queries take the read
// side, so every request observes fully settled state.
type Server struct {
	engine  *social.Engine
	runtime *host.Runtime
	state   *state.Manager
	metrics *metrics.SocialMetrics

	mu        sync.RWMutex
	authToken string
	feesSeen  *big.Int
}

func NewServer(engine *social.Engine, runtime *host.Runtime, st *state.Manager) *Server {
	token := strings.TrimSpace(os.Getenv("FEED_RPC_TOKEN"))
	return &Server{
		engine:    engine,
		runtime:   runtime,
		state:     st,
		metrics:   metrics.Social(),
		authToken: token,
		feesSeen:  big.NewInt(0),
	}
}

// Start serves the RPC endpoint together with the Prometheus scrape and
// health probes. It blocks until the listener fails.
func (s *Server) Start(addr string) error {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	slog.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, r)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps engine failures onto RPC error codes: validation
// failures are the caller's fault, denied fees get their own code so clients
// can distinguish "fix your input" from "fund your account".
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	var verr *social.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, verr.Reason, nil)
	case errors.Is(err, social.ErrFeeNotCharged):
		writeError(w, http.StatusPaymentRequired, id, codeFeeDenied, err.Error(), nil)
	case errors.Is(err, social.ErrNotOwner):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	s.metrics.ObserveRequest(req.Method)

	switch req.Method {
	case "social_addMessageToPost":
		s.handleAddMessageToPost(w, r, req)
	case "social_addMessageToMessage":
		s.handleAddMessageToMessage(w, r, req)
	case "social_likePost":
		s.handleLikePost(w, r, req)
	case "social_unlikePost":
		s.handleUnlikePost(w, r, req)
	case "social_likeMessage":
		s.handleLikeMessage(w, r, req)
	case "social_unlikeMessage":
		s.handleUnlikeMessage(w, r, req)
	case "social_addFriend":
		s.handleAddFriend(w, r, req)
	case "social_updateProfile":
		s.handleUpdateProfile(w, r, req)
	case "social_updateAdminSettings":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleUpdateAdminSettings(w, r, req)
	case "social_setOwner":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleSetOwner(w, r, req)
	case "social_getPostMessages":
		s.handleGetPostMessages(w, r, req)
	case "social_getPostMessage":
		s.handleGetPostMessage(w, r, req)
	case "social_getPostLikes":
		s.handleGetPostLikes(w, r, req)
	case "social_getPostLikesInfo":
		s.handleGetPostLikesInfo(w, r, req)
	case "social_getMessageLikes":
		s.handleGetMessageLikes(w, r, req)
	case "social_getMessageLikesInfo":
		s.handleGetMessageLikesInfo(w, r, req)
	case "social_getAccountLastLikes":
		s.handleGetAccountLastLikes(w, r, req)
	case "social_getAccountFriends":
		s.handleGetAccountFriends(w, r, req)
	case "social_getProfile":
		s.handleGetProfile(w, r, req)
	case "social_getAdminSettings":
		s.mu.RLock()
		settings := s.engine.GetAdminSettings()
		s.mu.RUnlock()
		writeResult(w, req.ID, settings)
	case "social_getStorageSettings":
		s.mu.RLock()
		settings := s.engine.GetStorageSettings()
		s.mu.RUnlock()
		writeResult(w, req.ID, settings)
	case "social_getOwner":
		s.mu.RLock()
		contractOwner := s.engine.Owner()
		s.mu.RUnlock()
		writeResult(w, req.ID, contractOwner)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "server missing FEED_RPC_TOKEN"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "authorization required"}
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "authorization must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

// settle drives the runtime until the receipt resolves, then records the
// outcome in the metrics registry.
func (s *Server) settle(kind string, receipt *host.Receipt, err error) (any, error) {
	if err != nil {
		s.metrics.MarkCallAborted(kind)
		return nil, err
	}
	s.runtime.Run()
	value, err := receipt.Result()
	if err != nil {
		s.metrics.MarkCallAborted(kind)
		return nil, err
	}
	s.metrics.MarkCallApplied(kind)
	s.recordCharged()
	s.metrics.SetStorageUsage(s.state.StorageUsage())
	return value, nil
}

// recordCharged feeds the fee counter with the tokens debited since the
// previous settled call. Caller holds the write lock.
func (s *Server) recordCharged() {
	total := s.engine.FeesCollected()
	delta := new(big.Int).Sub(total, s.feesSeen)
	s.feesSeen = total
	if delta.Sign() <= 0 {
		return
	}
	charged, _ := new(big.Float).SetInt(delta).Float64()
	s.metrics.AddFeesCharged(charged)
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("method requires a single parameter object")
	}
	return json.Unmarshal(req.Params[0], out)
}
