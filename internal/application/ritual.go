package application

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/herohuhu666/wanwu/internal/hexagram"
	"github.com/herohuhu666/wanwu/internal/metrics"
	"github.com/rs/zerolog"
)

type RitualState string

const (
	RitualIdle     RitualState = "idle"
	RitualShaking  RitualState = "shaking"
	RitualResolved RitualState = "resolved"
	RitualFailed   RitualState = "failed"
)

const yaosPerHexagram = 6

// RitualSession is one casting: six weighted coin draws, bottom line first.
type RitualSession struct {
	ID       string               `json:"id"`
	Question string               `json:"question,omitempty"`
	State    RitualState          `json:"state"`
	Yaos     []domain.Yao         `json:"yaos"`
	Record   *domain.RitualRecord `json:"record,omitempty"`
	Lines    []hexagram.Line      `json:"lines,omitempty"`
	Judgment string               `json:"judgment,omitempty"`
}

func (r RitualSession) clone() RitualSession {
	r.Yaos = slices.Clone(r.Yaos)
	r.Lines = slices.Clone(r.Lines)
	if r.Record != nil {
		rec := *r.Record
		rec.Yaos = slices.Clone(rec.Yaos)
		r.Record = &rec
	}
	return r
}

// YangProbability weights a draw by the active elements of energy, clamped
// to [0.2, 0.8]. An all-zero vector gives an even coin.
func YangProbability(energy domain.ElementVector) float64 {
	total := energy.Sum()
	if total <= 0 {
		return 0.5
	}
	p := float64(energy.Wood+energy.Fire+energy.Metal) / float64(total)
	return min(max(p, 0.2), 0.8)
}

type RitualService struct {
	profile   *ProfileService
	table     *hexagram.Table
	autoDelay time.Duration
	log       zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	sessions map[string]*RitualSession
}

type RitualOption func(*RitualService)

func WithRand(r *rand.Rand) RitualOption {
	return func(s *RitualService) { s.rng = r }
}

// WithAutoDelay sets the pause before an automatic cast draws its lines.
func WithAutoDelay(d time.Duration) RitualOption {
	return func(s *RitualService) { s.autoDelay = d }
}

func WithRitualLogger(log zerolog.Logger) RitualOption {
	return func(s *RitualService) { s.log = log }
}

func NewRitualService(profile *ProfileService, opts ...RitualOption) *RitualService {
	s := &RitualService{
		profile:   profile,
		table:     profile.table,
		autoDelay: 1500 * time.Millisecond,
		log:       zerolog.Nop(),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sessions:  make(map[string]*RitualSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin opens a manual session in the idle state.
func (s *RitualService) Begin(question string) RitualSession {
	session := &RitualSession{
		ID:       newID(),
		Question: strings.TrimSpace(question),
		State:    RitualIdle,
		Yaos:     make([]domain.Yao, 0, yaosPerHexagram),
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session.clone()
}

// Shake draws the next line of an open session. The sixth draw resolves it,
// after which the session is closed and forgotten.
func (s *RitualService) Shake(ctx context.Context, id string) (RitualSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return RitualSession{}, fmt.Errorf("ritual session %s: %w", id, domain.ErrNotFound)
	}
	session.State = RitualShaking
	session.Yaos = append(session.Yaos, s.draw())
	if len(session.Yaos) < yaosPerHexagram {
		return session.clone(), nil
	}

	delete(s.sessions, id)
	err := s.resolve(ctx, session)
	return session.clone(), err
}

// Cast runs a whole session at once. Auto mode first waits the presentation
// delay; cancelling ctx during the wait abandons the cast.
func (s *RitualService) Cast(ctx context.Context, question string, auto bool) (RitualSession, error) {
	if auto && s.autoDelay > 0 {
		timer := time.NewTimer(s.autoDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return RitualSession{}, ctx.Err()
		case <-timer.C:
		}
	}

	session := &RitualSession{
		ID:       newID(),
		Question: strings.TrimSpace(question),
		State:    RitualShaking,
		Yaos:     make([]domain.Yao, 0, yaosPerHexagram),
	}
	for range yaosPerHexagram {
		session.Yaos = append(session.Yaos, s.draw())
	}
	err := s.resolve(ctx, session)
	return session.clone(), err
}

// Open lists sessions still waiting for draws.
func (s *RitualService) Open() []RitualSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RitualSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.clone())
	}
	slices.SortFunc(out, func(a, b RitualSession) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (s *RitualService) draw() domain.Yao {
	energy, ok := s.profile.CurrentEnergy()
	p := 0.5
	if ok {
		p = YangProbability(energy)
	}

	s.rngMu.Lock()
	roll := s.rng.Float64()
	s.rngMu.Unlock()
	if roll < p {
		return domain.Yang
	}
	return domain.Yin
}

func (s *RitualService) resolve(ctx context.Context, session *RitualSession) error {
	key := hexagram.LinesKey(session.Yaos)
	h, ok := s.table.ByLines(key)
	if !ok {
		session.State = RitualFailed
		metrics.RitualFinished(string(RitualFailed))
		s.log.Error().Str("lines", key).Msg("no hexagram for cast lines")
		return fmt.Errorf("lines %s: %w", key, domain.ErrHexagramGeneration)
	}

	record, err := s.profile.completeRitual(ctx, domain.RitualRecord{
		HexagramID:   h.ID,
		HexagramName: h.Name,
		Yaos:         session.Yaos,
		Question:     session.Question,
	})
	if err != nil {
		session.State = RitualFailed
		metrics.RitualFinished(string(RitualFailed))
		return err
	}

	session.State = RitualResolved
	session.Record = &record
	session.Lines = h.LineCommentary()
	session.Judgment = h.Judgment
	metrics.RitualFinished(string(RitualResolved))
	return nil
}

// completeRitual stores a cast and feeds its energy rule in one critical section.
func (s *ProfileService) completeRitual(ctx context.Context, record domain.RitualRecord) (domain.RitualRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.addRitualRecord(ctx, record)
	if err != nil {
		return domain.RitualRecord{}, err
	}
	if s.core == nil {
		return stored, nil
	}

	action := domain.ActionRitualFrequent
	if hour := s.now().In(s.loc).Hour(); hour >= 22 || hour < 5 {
		action = domain.ActionRitualLate
	}
	if err := s.applyEnergy(ctx, action); err != nil {
		return domain.RitualRecord{}, err
	}
	return stored, nil
}

// DecisionCost is the merit spent on one decision reading.
const DecisionCost = 5

type DecisionAnalysis struct {
	Situation string `json:"situation"`
	Risk      string `json:"risk"`
	Action    string `json:"action"`
	Verdict   string `json:"verdict"`
}

// Decision is a paid single-draw reading. Its record has no yaos and
// keeps the verdict as its note.
type Decision struct {
	Hexagram domain.HexagramRef  `json:"hexagram"`
	Judgment string              `json:"judgment"`
	Analysis DecisionAnalysis    `json:"analysis"`
	Record   domain.RitualRecord `json:"record"`
	Balance  int                 `json:"balance"`
}

var decisionAnalysis = DecisionAnalysis{
	Situation: "当前局势如迷雾行舟，看似平静实则暗流涌动。你的直觉是对的，但时机尚未完全成熟。",
	Risk:      "最大的风险在于急于求成。如果现在贸然行动，可能会因为信息不对称而陷入被动。",
	Action:    "建议采取「守势」。先收集更多信息，观察对手或环境的变化。等待下一个节气（约7天后）再做决定。",
	Verdict:   "暂缓行动，静待良机",
}

// Decide spends DecisionCost merit and draws one hexagram for question.
func (s *RitualService) Decide(ctx context.Context, question string) (Decision, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Decision{}, fmt.Errorf("%w: question is required", domain.ErrValidation)
	}

	s.rngMu.Lock()
	id := s.rng.IntN(64) + 1
	s.rngMu.Unlock()
	h, ok := s.table.ByID(id)
	if !ok {
		s.log.Error().Int("hexagram", id).Msg("no hexagram for decision draw")
		return Decision{}, fmt.Errorf("hexagram %d: %w", id, domain.ErrHexagramGeneration)
	}

	record, balance, err := s.profile.recordDecision(ctx, domain.RitualRecord{
		HexagramID:   h.ID,
		HexagramName: h.Name,
		Yaos:         []domain.Yao{},
		Question:     question,
		Note:         decisionAnalysis.Verdict,
	}, DecisionCost)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Hexagram: h.Ref(),
		Judgment: h.Judgment,
		Analysis: decisionAnalysis,
		Record:   record,
		Balance:  balance,
	}, nil
}

// HexagramEntry is a knowledge base entry with its lines spelled out.
type HexagramEntry struct {
	hexagram.Hexagram
	Yaos       []domain.Yao    `json:"yaos"`
	Commentary []hexagram.Line `json:"commentary"`
}

func newHexagramEntry(h hexagram.Hexagram) HexagramEntry {
	return HexagramEntry{Hexagram: h, Yaos: h.Yaos(), Commentary: h.LineCommentary()}
}

// Catalog lists the knowledge base in King Wen order.
func (s *RitualService) Catalog() []HexagramEntry {
	out := make([]HexagramEntry, 0, s.table.Len())
	for _, h := range s.table.All() {
		out = append(out, newHexagramEntry(h))
	}
	return out
}

func (s *RitualService) Hexagram(id int) (HexagramEntry, error) {
	h, ok := s.table.ByID(id)
	if !ok {
		return HexagramEntry{}, fmt.Errorf("hexagram %d: %w", id, domain.ErrNotFound)
	}
	return newHexagramEntry(h), nil
}
