// Copyright 2024 The go-agentmemory Authors
// This file is part of the go-agentmemory library.
//
// The go-agentmemory library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-agentmemory library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-agentmemory library. If not, see <http://www.gnu.org/licenses/>.

package ledgerapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/agentmemory/go-agentmemory/analytics"
	"github.com/agentmemory/go-agentmemory/core"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
	maxBodySize     = 64 * 1024
)

var errAnalyticsDisabled = errors.New("analytics disabled")

// Config holds the HTTP settings of the API server.
type Config struct {
	Cors      []string // Allowed CORS origins, empty disables CORS handling
	RateLimit float64  // Requests per second per client, 0 disables limiting
	RateBurst int
}

// DefaultConfig is the default API configuration.
var DefaultConfig = Config{
	RateLimit: 50,
	RateBurst: 100,
}

// Server serves the ledger API.
type Server struct {
	backend   Backend
	analytics Analytics
	router    *httprouter.Router
	handler   http.Handler
	hub       *hub
}

// NewServer creates the API server. The analytics backend may be nil.
func NewServer(backend Backend, reports Analytics, config Config) *Server {
	s := &Server{
		backend:   backend,
		analytics: reports,
		router:    httprouter.New(),
		hub:       newHub(backend),
	}
	s.routes()

	var handler http.Handler = s.router
	if config.RateLimit > 0 {
		handler = newClientLimiter(config.RateLimit, config.RateBurst).middleware(handler)
	}
	handler = withRequestID(handler)
	s.handler = newCorsHandler(handler, config.Cors)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close terminates all event streams.
func (s *Server) Close() {
	s.hub.close()
}

func (s *Server) routes() {
	s.router.GET("/v1/info", s.handleInfo)
	s.router.POST("/v1/transactions", s.handleSendTransaction)
	s.router.GET("/v1/receipts/:hash", s.handleReceipt)
	s.router.GET("/v1/accounts/:address", s.handleAccount)

	s.router.GET("/v1/platform", s.handlePlatform)
	s.router.GET("/v1/agents", s.handleAgents)
	s.router.GET("/v1/agents/:id", s.handleAgent)
	s.router.GET("/v1/agents/:id/logs", s.handleAgentLogs)
	s.router.GET("/v1/agents/:id/purchases", s.handleAgentPurchases)
	s.router.GET("/v1/agents/:id/identity", s.handleAgentIdentity)
	s.router.GET("/v1/logs/:address", s.handleMemoryLog)
	s.router.GET("/v1/attestations/:log", s.handleAttestation)

	s.router.GET("/v1/modules", s.handleModules)
	s.router.GET("/v1/modules/:id", s.handleModule)
	s.router.GET("/v1/purchases/:agent/:module", s.handlePurchase)

	s.router.GET("/v1/analytics/agents/:id", s.handleAgentReport)
	s.router.GET("/v1/analytics/creators/:address", s.handleCreatorReport)

	s.router.GET("/v1/events", s.handleEvents)

	s.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, &ErrorResponse{Error: ErrorBody{Kind: core.KindNotFound.String(), Message: "no such route"}})
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	config := s.backend.Config()
	writeJSON(w, http.StatusOK, &InfoResult{
		ProgramID:         config.ProgramID,
		Head:              s.backend.Head(),
		MinModulePrice:    config.MinModulePrice,
		ReputationCeiling: config.ReputationCeiling,
		LogAddressScheme:  string(config.LogAddressScheme),
		Resolution:        string(config.TimestampResolution),
	})
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var args SendTxArgs
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&args); err != nil {
		writeBadRequest(w, fmt.Errorf("invalid request body: %v", err))
		return
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(args.Raw); err != nil {
		writeBadRequest(w, fmt.Errorf("invalid transaction: %v", err))
		return
	}
	receipt, err := s.backend.Apply(tx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hash, err := parseHash(ps.ByName("hash"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	respond(w)(s.backend.Receipt(hash))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr, err := parseAddress(ps.ByName("address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	acc, err := s.backend.Account(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &AccountResult{
		Address: addr,
		Kind:    acc.Kind,
		Balance: acc.Balance,
		Nonce:   acc.Nonce,
		Data:    acc.Data,
	})
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	respond(w)(s.backend.Platform())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	offset, limit, err := parsePage(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	respond(w)(s.backend.Agents(offset, limit))
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	respond(w)(s.backend.Agent(ps.ByName("id")))
}

func (s *Server) handleAgentLogs(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	offset, limit, err := parsePage(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	respond(w)(s.backend.MemoryLogs(ps.ByName("id"), offset, limit))
}

func (s *Server) handleAgentPurchases(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	respond(w)(s.backend.Purchases(ps.ByName("id")))
}

func (s *Server) handleAgentIdentity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	agentID := ps.ByName("id")
	identity, err := s.backend.Identity(agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	valid, err := s.backend.IdentityValid(agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	program := s.backend.Config().ProgramID
	writeJSON(w, http.StatusOK, &IdentityResult{
		Address:  types.IdentityAddress(program, types.AgentAddress(program, agentID)),
		Identity: identity,
		Valid:    valid,
	})
}

func (s *Server) handleMemoryLog(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr, err := parseAddress(ps.ByName("address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	respond(w)(s.backend.MemoryLog(addr))
}

func (s *Server) handleAttestation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr, err := parseAddress(ps.ByName("log"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	respond(w)(s.backend.Attestation(addr))
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	offset, limit, err := parsePage(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	respond(w)(s.backend.Modules(offset, limit))
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	respond(w)(s.backend.Module(ps.ByName("id")))
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	agentID, moduleID := ps.ByName("agent"), ps.ByName("module")
	purchase, err := s.backend.Purchase(agentID, moduleID)
	if err != nil {
		writeError(w, err)
		return
	}
	program := s.backend.Config().ProgramID
	addr := types.PurchaseAddress(program, types.AgentAddress(program, agentID), types.ModuleAddress(program, moduleID))
	writeJSON(w, http.StatusOK, &PurchaseResult{Address: addr, Purchase: purchase})
}

func (s *Server) handleAgentReport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if s.analytics == nil {
		writeError(w, errAnalyticsDisabled)
		return
	}
	respond(w)(s.analytics.AgentReport(r.Context(), ps.ByName("id")))
}

func (s *Server) handleCreatorReport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if s.analytics == nil {
		writeError(w, errAnalyticsDisabled)
		return
	}
	addr, err := parseAddress(ps.ByName("address"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	respond(w)(s.analytics.CreatorReport(r.Context(), addr))
}

// respond returns a function writing either the result or the error of a
// backend call.
func respond(w http.ResponseWriter) func(interface{}, error) {
	return func(result interface{}, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debug("Failed to write response", "err", err)
	}
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, &ErrorResponse{Error: ErrorBody{Kind: core.KindValidation.String(), Message: err.Error()}})
}

// writeError maps err onto an HTTP status and error body.
func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		log.Warn("API request failed", "err", err)
	}
	writeJSON(w, status, &ErrorResponse{Error: body})
}

func errorResponse(err error) (int, ErrorBody) {
	body := ErrorBody{Kind: core.KindUnknown.String(), Message: err.Error()}
	if lerr, ok := core.AsLedgerError(err); ok {
		body.Kind, body.Code, body.Name = lerr.Kind.String(), lerr.Code, lerr.Name
	}
	switch {
	case errors.Is(err, analytics.ErrAgentNotFound):
		body.Kind = core.KindNotFound.String()
		return http.StatusNotFound, body
	case errors.Is(err, errAnalyticsDisabled):
		return http.StatusServiceUnavailable, body
	}
	switch core.KindOf(err) {
	case core.KindValidation:
		return http.StatusBadRequest, body
	case core.KindAuthorization:
		return http.StatusForbidden, body
	case core.KindConflict:
		return http.StatusConflict, body
	case core.KindNotFound:
		return http.StatusNotFound, body
	case core.KindFunds:
		return http.StatusPaymentRequired, body
	default:
		return http.StatusInternalServerError, body
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash %q", s)
	}
	return common.BytesToHash(b), nil
}

func parsePage(r *http.Request) (offset, limit int, err error) {
	q := r.URL.Query()
	limit = defaultPageSize
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit <= 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit, nil
}

// newCorsHandler wraps srv with CORS handling for the allowed origins.
func newCorsHandler(srv http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		return srv
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(srv)
}
