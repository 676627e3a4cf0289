package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

const socketTimeout = 60 * time.Second

// frame is one JSON-RPC message on the control socket, in either direction.
type frame struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  any             `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *frameError     `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

type frameError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *frameError) Error() string {
	return fmt.Sprintf("rpc error (%d): %s", e.Code, e.Message)
}

var frameSeq atomic.Int64

// socketCall runs one request/reply exchange over a fresh connection.
func socketCall(ctx context.Context, socket, method string, in, out any) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return fmt.Errorf("dial %s: %w", socket, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(socketTimeout)
	}
	_ = conn.SetDeadline(deadline)

	id := frameSeq.Add(1)
	if err := json.NewEncoder(conn).Encode(frame{Version: "2.0", Method: method, Params: in, ID: id}); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}
	var reply frame
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read %s reply: %w", method, err)
	}
	if reply.Error != nil {
		return reply.Error
	}
	if reply.ID != id {
		return fmt.Errorf("reply id %d does not match request %d", reply.ID, id)
	}
	if out == nil || len(reply.Result) == 0 {
		return nil
	}
	return json.Unmarshal(reply.Result, out)
}

// invoke sends one operation over the configured transport.
func invoke(ctx context.Context, cfg cliConfig, rpcMethod, httpMethod, path string, in, out any) error {
	if cfg.Transport == "uds" {
		return socketCall(ctx, cfg.Socket, rpcMethod, in, out)
	}
	if httpMethod == http.MethodGet {
		in = nil
	}
	return newAPIClient(cfg.Server).request(ctx, httpMethod, path, in, out)
}

func doLogin(ctx context.Context, cfg cliConfig, params map[string]string, out any) error {
	return invoke(ctx, cfg, "profile.login", http.MethodPost, "/api/profile/login", params, out)
}

func doLogout(ctx context.Context, cfg cliConfig) error {
	return invoke(ctx, cfg, "profile.logout", http.MethodPost, "/api/profile/logout", nil, nil)
}

func doProfile(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "profile.show", http.MethodGet, "/api/profile", nil, out)
}

func doMembership(ctx context.Context, cfg cliConfig, member bool) error {
	return invoke(ctx, cfg, "profile.membership", http.MethodPut, "/api/profile/membership", map[string]bool{"member": member}, nil)
}

func doMeritHistory(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "merit.history", http.MethodGet, "/api/merit", nil, out)
}

func doMeritAdd(ctx context.Context, cfg cliConfig, amount int, kind, desc string, out any) error {
	in := map[string]any{"amount": amount, "type": kind, "desc": desc}
	return invoke(ctx, cfg, "merit.add", http.MethodPost, "/api/merit/add", in, out)
}

func doMeritConsume(ctx context.Context, cfg cliConfig, amount int, desc string, out any) error {
	in := map[string]any{"amount": amount, "desc": desc}
	return invoke(ctx, cfg, "merit.consume", http.MethodPost, "/api/merit/consume", in, out)
}

func doDailySubmit(ctx context.Context, cfg cliConfig, state, energy, sleep string, out any) error {
	in := map[string]string{"state": state, "energy": energy, "sleep": sleep}
	return invoke(ctx, cfg, "daily.submit", http.MethodPost, "/api/daily", in, out)
}

func doDailyShow(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "daily.show", http.MethodGet, "/api/daily", nil, out)
}

func doInsightAvailability(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "insight.availability", http.MethodGet, "/api/insights/availability", nil, out)
}

func doInsightAdd(ctx context.Context, cfg cliConfig, in map[string]string, out any) error {
	return invoke(ctx, cfg, "insight.add", http.MethodPost, "/api/insights", in, out)
}

func doInsightHistory(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "insight.history", http.MethodGet, "/api/insights", nil, out)
}

func doRitualBegin(ctx context.Context, cfg cliConfig, question string, out any) error {
	return invoke(ctx, cfg, "ritual.begin", http.MethodPost, "/api/rituals", map[string]string{"question": question}, out)
}

func doRitualShake(ctx context.Context, cfg cliConfig, id string, out any) error {
	return invoke(ctx, cfg, "ritual.shake", http.MethodPost, "/api/rituals/"+id+"/shake", map[string]string{"id": id}, out)
}

func doRitualCast(ctx context.Context, cfg cliConfig, question string, auto bool, out any) error {
	in := map[string]any{"question": question, "auto": auto}
	return invoke(ctx, cfg, "ritual.cast", http.MethodPost, "/api/rituals/cast", in, out)
}

func doRitualHistory(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "ritual.history", http.MethodGet, "/api/rituals", nil, out)
}

func doArchives(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "archives.list", http.MethodGet, "/api/archives", nil, out)
}

func doGuardianCheckIn(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "guardian.checkin", http.MethodPost, "/api/guardian/checkin", nil, out)
}

func doGuardianStatus(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "guardian.status", http.MethodGet, "/api/guardian", nil, out)
}

func doEnergyUpdate(ctx context.Context, cfg cliConfig, action string, out any) error {
	return invoke(ctx, cfg, "energy.update", http.MethodPost, "/api/energy", map[string]string{"action": action}, out)
}

func doToday(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "destiny.today", http.MethodGet, "/api/destiny/today", nil, out)
}

func doForecast(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "destiny.forecast", http.MethodGet, "/api/destiny/forecast", nil, out)
}

func doChat(ctx context.Context, cfg cliConfig, in any, out any) error {
	return invoke(ctx, cfg, "oracle.chat", http.MethodPost, "/api/qwen/chat", in, out)
}

func doVision(ctx context.Context, cfg cliConfig, in any, out any) error {
	return invoke(ctx, cfg, "oracle.vision", http.MethodPost, "/api/qwen/vision", in, out)
}

func doDivination(ctx context.Context, cfg cliConfig, in any, out any) error {
	return invoke(ctx, cfg, "oracle.divination", http.MethodPost, "/api/qwen/divination", in, out)
}

func doRitualDecide(ctx context.Context, cfg cliConfig, question string, out any) error {
	return invoke(ctx, cfg, "ritual.decide", http.MethodPost, "/api/rituals/decide", map[string]string{"question": question}, out)
}

func doHexagramList(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "hexagram.list", http.MethodGet, "/api/hexagrams", nil, out)
}

func doHexagramShow(ctx context.Context, cfg cliConfig, id int, out any) error {
	return invoke(ctx, cfg, "hexagram.show", http.MethodGet, fmt.Sprintf("/api/hexagrams/%d", id), map[string]int{"id": id}, out)
}

func doExport(ctx context.Context, cfg cliConfig, out any) error {
	return invoke(ctx, cfg, "state.export", http.MethodGet, "/api/state/export", nil, out)
}
