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

// Package client provides a Go client for the agent memory ledger API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentmemory/go-agentmemory/analytics"
	"github.com/agentmemory/go-agentmemory/core"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/internal/ledgerapi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/websocket"
)

const defaultTimeout = 30 * time.Second

// Error is a failed API call. Ledger errors unwrap to the matching core
// sentinel, so errors.Is(err, core.ErrAgentNotFound) works on the client.
type Error struct {
	StatusCode int
	Kind       string
	Code       uint32
	Message    string

	sentinel *core.LedgerError
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e.sentinel == nil {
		return nil
	}
	return e.sentinel
}

// IsNotFound reports whether err is a 404 answer of the API.
func IsNotFound(err error) bool {
	if core.IsNotFound(err) {
		return true
	}
	if apiErr, ok := err.(*Error); ok {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// Client talks to a ledger node over HTTP.
type Client struct {
	endpoint string
	hc       *http.Client
	dialer   *websocket.Dialer
	program  common.Address
}

// Dial connects a client to the node at rawurl and fetches the program ID
// used for address derivation and transaction signing.
func Dial(ctx context.Context, rawurl string) (*Client, error) {
	c, err := NewClient(rawurl, nil)
	if err != nil {
		return nil, err
	}
	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}
	c.program = info.ProgramID
	return c, nil
}

// NewClient creates a client without contacting the node. The program ID
// stays zero until set with WithProgram or fetched by Dial.
func NewClient(rawurl string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		endpoint: strings.TrimRight(u.String(), "/"),
		hc:       hc,
		dialer:   websocket.DefaultDialer,
	}, nil
}

// WithProgram sets the program ID the client derives addresses under.
func (c *Client) WithProgram(program common.Address) *Client {
	c.program = program
	return c
}

// ProgramID returns the program the client derives addresses under.
func (c *Client) ProgramID() common.Address { return c.program }

// AgentAddress derives the account address of an agent.
func (c *Client) AgentAddress(agentID string) common.Address {
	return types.AgentAddress(c.program, agentID)
}

// ModuleAddress derives the account address of a module.
func (c *Client) ModuleAddress(moduleID string) common.Address {
	return types.ModuleAddress(c.program, moduleID)
}

// PurchaseAddress derives the address of an agent's purchase of a module.
func (c *Client) PurchaseAddress(agentID, moduleID string) common.Address {
	return types.PurchaseAddress(c.program, c.AgentAddress(agentID), c.ModuleAddress(moduleID))
}

// AttestationAddress derives the attestation address of a memory log.
func (c *Client) AttestationAddress(memoryLog common.Address) common.Address {
	return types.AttestationAddress(c.program, memoryLog)
}

// Info returns the node's ledger parameters and head.
func (c *Client) Info(ctx context.Context) (*ledgerapi.InfoResult, error) {
	var info ledgerapi.InfoResult
	if err := c.get(ctx, "/v1/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Platform returns the marketplace configuration.
func (c *Client) Platform(ctx context.Context) (*types.PlatformConfig, error) {
	var platform types.PlatformConfig
	if err := c.get(ctx, "/v1/platform", nil, &platform); err != nil {
		return nil, err
	}
	return &platform, nil
}

func (c *Client) Agent(ctx context.Context, agentID string) (*types.AgentAccount, error) {
	var agent types.AgentAccount
	if err := c.get(ctx, "/v1/agents/"+url.PathEscape(agentID), nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (c *Client) Agents(ctx context.Context, offset, limit int) ([]core.AgentEntry, error) {
	var agents []core.AgentEntry
	if err := c.get(ctx, "/v1/agents", page(offset, limit), &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (c *Client) MemoryLog(ctx context.Context, addr common.Address) (*types.MemoryLog, error) {
	var ml types.MemoryLog
	if err := c.get(ctx, "/v1/logs/"+addr.Hex(), nil, &ml); err != nil {
		return nil, err
	}
	return &ml, nil
}

func (c *Client) MemoryLogs(ctx context.Context, agentID string, offset, limit int) ([]core.MemoryLogEntry, error) {
	var logs []core.MemoryLogEntry
	if err := c.get(ctx, "/v1/agents/"+url.PathEscape(agentID)+"/logs", page(offset, limit), &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) Attestation(ctx context.Context, memoryLog common.Address) (*types.Attestation, error) {
	var att types.Attestation
	if err := c.get(ctx, "/v1/attestations/"+memoryLog.Hex(), nil, &att); err != nil {
		return nil, err
	}
	return &att, nil
}

func (c *Client) Module(ctx context.Context, moduleID string) (*types.ModuleMetadata, error) {
	var module types.ModuleMetadata
	if err := c.get(ctx, "/v1/modules/"+url.PathEscape(moduleID), nil, &module); err != nil {
		return nil, err
	}
	return &module, nil
}

func (c *Client) Modules(ctx context.Context, offset, limit int) ([]core.ModuleEntry, error) {
	var modules []core.ModuleEntry
	if err := c.get(ctx, "/v1/modules", page(offset, limit), &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// Purchase returns the record of an agent's purchase of a module.
func (c *Client) Purchase(ctx context.Context, agentID, moduleID string) (*types.ModulePurchase, error) {
	var result ledgerapi.PurchaseResult
	path := "/v1/purchases/" + url.PathEscape(agentID) + "/" + url.PathEscape(moduleID)
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Purchase, nil
}

// HasPurchased reports whether the agent owns the module. A missing
// purchase, agent or module is a plain false.
func (c *Client) HasPurchased(ctx context.Context, agentID, moduleID string) (bool, error) {
	_, err := c.Purchase(ctx, agentID, moduleID)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Purchases lists the modules an agent owns.
func (c *Client) Purchases(ctx context.Context, agentID string) ([]core.PurchaseEntry, error) {
	var purchases []core.PurchaseEntry
	if err := c.get(ctx, "/v1/agents/"+url.PathEscape(agentID)+"/purchases", nil, &purchases); err != nil {
		return nil, err
	}
	return purchases, nil
}

// Identity returns the verified identity of an agent and whether it is
// valid at the current ledger time.
func (c *Client) Identity(ctx context.Context, agentID string) (*types.VerifiedIdentity, bool, error) {
	var result ledgerapi.IdentityResult
	if err := c.get(ctx, "/v1/agents/"+url.PathEscape(agentID)+"/identity", nil, &result); err != nil {
		return nil, false, err
	}
	return result.Identity, result.Valid, nil
}

func (c *Client) Account(ctx context.Context, addr common.Address) (*ledgerapi.AccountResult, error) {
	var acc ledgerapi.AccountResult
	if err := c.get(ctx, "/v1/accounts/"+addr.Hex(), nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// BalanceAt returns the lamport balance of addr, zero for unknown accounts.
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (uint64, error) {
	acc, err := c.Account(ctx, addr)
	if IsNotFound(err) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// NonceAt returns the next transaction nonce of addr.
func (c *Client) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	acc, err := c.Account(ctx, addr)
	if IsNotFound(err) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt types.Receipt
	if err := c.get(ctx, "/v1/receipts/"+hash.Hex(), nil, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// SendTransaction submits a signed transaction and waits for its receipt.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var receipt types.Receipt
	if err := c.post(ctx, "/v1/transactions", &ledgerapi.SendTxArgs{Raw: raw}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) AgentReport(ctx context.Context, agentID string) (*analytics.AgentReport, error) {
	var report analytics.AgentReport
	if err := c.get(ctx, "/v1/analytics/agents/"+url.PathEscape(agentID), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) CreatorReport(ctx context.Context, creator common.Address) (*analytics.CreatorReport, error) {
	var report analytics.CreatorReport
	if err := c.get(ctx, "/v1/analytics/creators/"+creator.Hex(), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SubscribeEvents streams ledger events of the given kinds, or of every
// kind when none are given, into ch.
func (c *Client) SubscribeEvents(ctx context.Context, ch chan<- *types.Event, kinds ...types.EventKind) (event.Subscription, error) {
	u := "ws" + strings.TrimPrefix(c.endpoint, "http") + "/v1/events"
	if len(kinds) > 0 {
		names := make([]string, len(kinds))
		for i, kind := range kinds {
			names[i] = kind.String()
		}
		u += "?" + url.Values{"kinds": {strings.Join(names, ",")}}.Encode()
	}
	conn, resp, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, decodeError(resp)
		}
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer conn.Close()

		msgs, errc := make(chan *ledgerapi.EventMessage), make(chan error, 1)
		go func() {
			for {
				msg := new(ledgerapi.EventMessage)
				if err := conn.ReadJSON(msg); err != nil {
					errc <- err
					return
				}
				select {
				case msgs <- msg:
				case <-quit:
					return
				}
			}
		}()
		for {
			select {
			case msg := <-msgs:
				select {
				case ch <- msg.Event:
				case <-quit:
					return nil
				}
			case err := <-errc:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return nil
				}
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func page(offset, limit int) url.Values {
	q := make(url.Values)
	if offset > 0 {
		q.Set("offset", fmt.Sprint(offset))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	return q
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// decodeError converts an error answer into an *Error.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var answer ledgerapi.ErrorResponse
	if err := json.Unmarshal(body, &answer); err != nil || answer.Error.Kind == "" {
		return &Error{StatusCode: resp.StatusCode, Kind: core.KindUnknown.String(), Message: strings.TrimSpace(resp.Status + " " + string(body))}
	}
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Kind:       answer.Error.Kind,
		Code:       answer.Error.Code,
		Message:    answer.Error.Message,
	}
	if answer.Error.Code != 0 {
		apiErr.sentinel = core.ErrorByCode(answer.Error.Code)
	}
	return apiErr
}
