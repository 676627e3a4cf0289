package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/herohuhu666/wanwu/internal/application"
	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/herohuhu666/wanwu/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeApp            = 40000
	codeConflict       = 40900
	codeHexagram       = 42200
	codeInternal       = 50000
)

type Server struct {
	services application.Services
	log      zerolog.Logger
	listener net.Listener
	path     string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, services application.Services, log zerolog.Logger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		services: services,
		log:      log.With().Str("component", "rpc").Logger(),
		listener: ln,
		path:     path,
		ctx:      ctx,
		cancel:   cancel,
		conns:    make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		if s.ctx.Err() != nil {
			_ = conn.Close()
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Close stops accepting, drops open connections and waits for handlers.
func (s *Server) Close() error {
	s.cancel()
	err := s.listener.Close()
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}, ID: nil})
			return
		}

		started := time.Now()
		resp := s.dispatch(s.ctx, req)
		metrics.ObserveRequest("rpc", methodLabel(req.Method, resp), started)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}, ID: req.ID}
	}

	profile := s.services.Profile
	switch req.Method {
	case "profile.login":
		var p domain.LifeParameters
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(profile.Login(ctx, p)))
	case "profile.logout":
		if err := profile.Logout(ctx); err != nil {
			return s.serviceError(req, err)
		}
		return ok(req.ID, map[string]bool{"ok": true})
	case "profile.show":
		return s.reply(req, withErr(profile.Snapshot(ctx)))
	case "profile.membership":
		var p struct {
			Member bool `json:"member"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := profile.SetMembership(ctx, p.Member); err != nil {
			return s.serviceError(req, err)
		}
		return ok(req.ID, map[string]bool{"member": p.Member})

	case "merit.add":
		var p struct {
			Amount int              `json:"amount"`
			Type   domain.MeritType `json:"type"`
			Desc   string           `json:"desc"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(profile.AddMerit(ctx, p.Amount, p.Type, p.Desc)))
	case "merit.consume":
		var p struct {
			Amount int    `json:"amount"`
			Desc   string `json:"desc"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		consumed, err := profile.ConsumeMerit(ctx, p.Amount, p.Desc)
		if err != nil {
			return s.serviceError(req, err)
		}
		if !consumed {
			return s.serviceError(req, domain.ErrInsufficientMerit)
		}
		balance, _ := profile.Merit()
		return ok(req.ID, map[string]any{"consumed": true, "balance": balance})
	case "merit.history":
		balance, history := profile.Merit()
		return ok(req.ID, map[string]any{"balance": balance, "history": history})

	case "daily.submit":
		var p struct {
			State  domain.DailyState   `json:"state"`
			Energy domain.EnergyLevel  `json:"energy"`
			Sleep  domain.SleepQuality `json:"sleep"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(profile.SubmitDailyRecord(ctx, p.State, p.Energy, p.Sleep)))
	case "daily.show":
		record, found, err := profile.DailyRecord(ctx)
		if err != nil {
			return s.serviceError(req, err)
		}
		if !found {
			return ok(req.ID, map[string]any{"found": false})
		}
		return ok(req.ID, map[string]any{"found": true, "record": record})

	case "insight.availability":
		return s.reply(req, withErr(profile.CheckInsightAvailability(ctx)))
	case "insight.add":
		var p domain.InsightRecord
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(profile.AddInsightRecord(ctx, p)))
	case "insight.history":
		return ok(req.ID, profile.InsightHistory())

	case "ritual.begin":
		var p struct {
			Question string `json:"question"`
		}
		if !decodeOptional(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return ok(req.ID, s.services.Ritual.Begin(p.Question))
	case "ritual.shake":
		var p struct {
			ID string `json:"id"`
		}
		if !decodeParams(req.Params, &p) || p.ID == "" {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(s.services.Ritual.Shake(ctx, p.ID)))
	case "ritual.cast":
		var p struct {
			Question string `json:"question"`
			Auto     bool   `json:"auto"`
		}
		if !decodeOptional(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(s.services.Ritual.Cast(ctx, p.Question, p.Auto)))
	case "ritual.decide":
		var p struct {
			Question string `json:"question"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(s.services.Ritual.Decide(ctx, p.Question)))
	case "ritual.history":
		return ok(req.ID, profile.RitualHistory())
	case "hexagram.list":
		return ok(req.ID, s.services.Ritual.Catalog())
	case "hexagram.show":
		var p struct {
			ID int `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(s.services.Ritual.Hexagram(p.ID)))
	case "state.export":
		return s.reply(req, withErr(profile.Export(ctx)))
	case "archives.list":
		return ok(req.ID, profile.Archives())

	case "guardian.checkin":
		return s.reply(req, withErr(profile.GuardianCheckIn(ctx)))
	case "guardian.status":
		return ok(req.ID, profile.GuardianStatus())
	case "energy.update":
		var p struct {
			Action domain.EnergyAction `json:"action"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(profile.UpdateEnergyState(ctx, p.Action)))

	case "destiny.today":
		return s.reply(req, withErr(profile.Today()))
	case "destiny.forecast":
		return ok(req.ID, profile.Forecast())

	case "oracle.chat":
		var p application.ChatRequest
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(s.services.Oracle.Chat(ctx, p)))
	case "oracle.vision":
		var p application.VisionRequest
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(s.services.Oracle.Vision(ctx, p)))
	case "oracle.divination":
		var p application.DivinationRequest
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		return s.reply(req, withErr(s.services.Oracle.Divination(ctx, p)))
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeMethodNotFound, Message: "method not found"}, ID: req.ID}
	}
}

// methodLabel keeps the metric label set bounded to the methods served here.
func methodLabel(method string, resp response) string {
	if resp.Error != nil && (resp.Error.Code == codeMethodNotFound || resp.Error.Code == codeInvalidRequest) {
		return "unknown"
	}
	return method
}

type outcome struct {
	value any
	err   error
}

func withErr[T any](v T, err error) outcome {
	return outcome{value: v, err: err}
}

func (s *Server) reply(req request, out outcome) response {
	if out.err != nil {
		return s.serviceError(req, out.err)
	}
	return ok(req.ID, out.value)
}

func (s *Server) serviceError(req request, err error) response {
	switch {
	case errors.Is(err, domain.ErrAlreadyCheckedIn), errors.Is(err, domain.ErrInsufficientMerit):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeConflict, Message: err.Error()}, ID: req.ID}
	case errors.Is(err, domain.ErrHexagramGeneration):
		s.log.Error().Err(err).Str("method", req.Method).Msg("ritual failed")
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeHexagram, Message: domain.ErrHexagramGeneration.Error()}, ID: req.ID}
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotReady), errors.Is(err, domain.ErrNotFound):
		return appError(req.ID, err)
	default:
		s.log.Error().Err(err).Str("method", req.Method).Msg("rpc call failed")
		return internalError(req.ID, err)
	}
}

func ok(id, result any) response {
	return response{JSONRPC: "2.0", Result: result, ID: id}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// decodeOptional accepts absent or null params.
func decodeOptional(raw json.RawMessage, out any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	return json.Unmarshal(raw, out) == nil
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidParams, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: codeApp, Message: err.Error()}, ID: id}
}

func internalError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInternal, Message: fmt.Sprintf("internal error: %v", err)}, ID: id}
}
