package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/herohuhu666/wanwu/internal/destiny"
	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/herohuhu666/wanwu/internal/hexagram"
	"github.com/herohuhu666/wanwu/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	InitialMerit      = 108
	FirstRitualBonus  = 3
	ReflectionReward  = 5
	GuardianReward    = 2
	FreeInsightsDaily = 3
	InsightMeritPrice = 50

	// GuardianWindow is how long a check-in keeps the legacy capsule sealed.
	GuardianWindow = 259200 * time.Second
)

const (
	keyProfile       = "profile"
	keyCoreStructure = "core_structure"
	keyFirstHexagram = "first_hexagram"
	keyMerit         = "merit"
	keyMeritHistory  = "merit_history"
	keyInsightCount  = "insight_count_"
	keyInsightLog    = "insight_history"
	keyRitualLog     = "ritual_history"
	keyLastGuardian  = "last_guardian_time"
	keyMember        = "member"
	keyDaily         = "daily_"
)

// ProfileService is the profile and energy store. Every mutation persists
// before returning; one mutex serializes all callers.
type ProfileService struct {
	repo      domain.StateRepository
	table     *hexagram.Table
	namespace string
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger

	mu             sync.Mutex
	profile        *domain.LifeParameters
	core           *domain.UserCoreStructure
	first          *domain.FirstHexagram
	merit          int
	meritHistory   []domain.MeritRecord
	insightHistory []domain.InsightRecord
	ritualHistory  []domain.RitualRecord
	lastGuardian   *time.Time
	member         bool
}

type ProfileOption func(*ProfileService)

func WithNamespace(ns string) ProfileOption {
	return func(s *ProfileService) { s.namespace = ns }
}

// WithLocation sets the zone whose midnight starts a new calendar day.
func WithLocation(loc *time.Location) ProfileOption {
	return func(s *ProfileService) { s.loc = loc }
}

func WithClock(now func() time.Time) ProfileOption {
	return func(s *ProfileService) { s.now = now }
}

func WithLogger(log zerolog.Logger) ProfileOption {
	return func(s *ProfileService) { s.log = log }
}

func WithTable(t *hexagram.Table) ProfileOption {
	return func(s *ProfileService) { s.table = t }
}

// NewProfileService hydrates a store from repo.
func NewProfileService(ctx context.Context, repo domain.StateRepository, opts ...ProfileOption) (*ProfileService, error) {
	s := &ProfileService{
		repo:      repo,
		table:     hexagram.Default(),
		namespace: "wanwu_",
		loc:       time.Local,
		now:       time.Now,
		log:       zerolog.Nop(),
		merit:     InitialMerit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ProfileService) load(ctx context.Context) error {
	var profile domain.LifeParameters
	if ok, err := s.getJSON(ctx, keyProfile, &profile); err != nil {
		return err
	} else if ok {
		s.profile = &profile
	}

	var core domain.UserCoreStructure
	if ok, err := s.getJSON(ctx, keyCoreStructure, &core); err != nil {
		return err
	} else if ok {
		if core.CurrentEnergy == nil {
			energy := core.Elements
			core.CurrentEnergy = &energy
			if err := s.putJSON(ctx, keyCoreStructure, core); err != nil {
				return err
			}
			s.log.Info().Msg("synthesized current energy for legacy core structure")
		}
		s.core = &core
	}

	var first domain.FirstHexagram
	if ok, err := s.getJSON(ctx, keyFirstHexagram, &first); err != nil {
		return err
	} else if ok {
		s.first = &first
	}

	if _, err := s.getJSON(ctx, keyMerit, &s.merit); err != nil {
		return err
	}
	if _, err := s.getJSON(ctx, keyMeritHistory, &s.meritHistory); err != nil {
		return err
	}
	if _, err := s.getJSON(ctx, keyInsightLog, &s.insightHistory); err != nil {
		return err
	}
	if _, err := s.getJSON(ctx, keyRitualLog, &s.ritualHistory); err != nil {
		return err
	}

	var last time.Time
	if ok, err := s.getJSON(ctx, keyLastGuardian, &last); err != nil {
		return err
	} else if ok {
		s.lastGuardian = &last
	}

	if _, err := s.getJSON(ctx, keyMember, &s.member); err != nil {
		return err
	}
	return nil
}

func (s *ProfileService) Login(ctx context.Context, params domain.LifeParameters) (domain.Snapshot, error) {
	params.Nickname = strings.TrimSpace(params.Nickname)
	params.BirthDate = strings.TrimSpace(params.BirthDate)
	params.BirthTime = strings.TrimSpace(params.BirthTime)
	params.BirthCity = strings.TrimSpace(params.BirthCity)
	if !destiny.Ready(params) {
		return domain.Snapshot{}, fmt.Errorf("%w: nickname, birthDate and birthCity are required", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The profile is written last so a failed write never leaves a
	// logged-in profile without its derived structures.
	if s.first == nil {
		first, _ := destiny.DeriveFirstHexagram(params, s.table)
		if err := s.putJSON(ctx, keyFirstHexagram, first); err != nil {
			return domain.Snapshot{}, err
		}
		s.first = &first
	}

	if s.core == nil {
		core, _ := destiny.DeriveCoreStructure(params)
		if err := s.putJSON(ctx, keyCoreStructure, core); err != nil {
			return domain.Snapshot{}, err
		}
		s.core = &core
		if _, err := s.addMerit(ctx, FirstRitualBonus, domain.MeritFirstRitual, "初入万物，首卦开启"); err != nil {
			return domain.Snapshot{}, err
		}
		s.log.Info().Int("life_hexagram", core.LifeHexagram).Msg("derived core structure")
	}

	if err := s.putJSON(ctx, keyProfile, params); err != nil {
		return domain.Snapshot{}, err
	}
	s.profile = &params

	return s.snapshot(ctx)
}

// Logout forgets the identity but keeps merit, histories and counters.
func (s *ProfileService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, s.key(keyProfile), s.key(keyCoreStructure), s.key(keyFirstHexagram)); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	s.profile = nil
	s.core = nil
	s.first = nil
	return nil
}

func (s *ProfileService) AddMerit(ctx context.Context, amount int, kind domain.MeritType, description string) (domain.MeritRecord, error) {
	if amount <= 0 {
		return domain.MeritRecord{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if !kind.Valid() || kind == domain.MeritConsume {
		return domain.MeritRecord{}, fmt.Errorf("%w: unknown merit type %q", domain.ErrValidation, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMerit(ctx, amount, kind, description)
}

func (s *ProfileService) addMerit(ctx context.Context, amount int, kind domain.MeritType, description string) (domain.MeritRecord, error) {
	record := domain.MeritRecord{
		ID:          newID(),
		Type:        kind,
		Amount:      amount,
		Timestamp:   s.clock(),
		Description: description,
	}
	if err := s.recordMerit(ctx, s.merit+amount, record); err != nil {
		return domain.MeritRecord{}, err
	}
	metrics.MeritAwarded(string(kind), amount)

	if s.core != nil {
		if err := s.applyEnergy(ctx, domain.ActionMeritGain); err != nil {
			return domain.MeritRecord{}, err
		}
	}
	return record, nil
}

// ConsumeMerit spends amount if the balance covers it. A short balance is
// reported as false, not an error, and changes nothing.
func (s *ProfileService) ConsumeMerit(ctx context.Context, amount int, description string) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.merit < amount {
		return false, nil
	}
	record := domain.MeritRecord{
		ID:          newID(),
		Type:        domain.MeritConsume,
		Amount:      -amount,
		Timestamp:   s.clock(),
		Description: description,
	}
	if err := s.recordMerit(ctx, s.merit-amount, record); err != nil {
		return false, err
	}
	metrics.MeritConsumed(amount)
	return true, nil
}

func (s *ProfileService) recordMerit(ctx context.Context, balance int, record domain.MeritRecord) error {
	history := slices.Insert(slices.Clone(s.meritHistory), 0, record)
	if err := s.putJSON(ctx, keyMeritHistory, history); err != nil {
		return err
	}
	if err := s.putJSON(ctx, keyMerit, balance); err != nil {
		return err
	}
	s.meritHistory = history
	s.merit = balance
	return nil
}

func (s *ProfileService) Merit() (int, []domain.MeritRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merit, slices.Clone(s.meritHistory)
}

// SubmitDailyRecord stores today's self-report. Repeated submissions on
// the same day overwrite the record and are rewarded each time.
func (s *ProfileService) SubmitDailyRecord(ctx context.Context, state domain.DailyState, energy domain.EnergyLevel, sleep domain.SleepQuality) (domain.DailyRecord, error) {
	if !state.Valid() || !energy.Valid() || !sleep.Valid() {
		return domain.DailyRecord{}, fmt.Errorf("%w: invalid daily record %q/%q/%q", domain.ErrValidation, state, energy, sleep)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := domain.DailyRecord{
		Date:      s.today(),
		State:     state,
		Energy:    energy,
		Sleep:     sleep,
		Completed: true,
	}
	if err := s.putJSON(ctx, keyDaily+record.Date, record); err != nil {
		return domain.DailyRecord{}, err
	}
	if _, err := s.addMerit(ctx, ReflectionReward, domain.MeritReflection, "每日自省"); err != nil {
		return domain.DailyRecord{}, err
	}
	return record, nil
}

func (s *ProfileService) DailyRecord(ctx context.Context) (domain.DailyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyRecord(ctx)
}

func (s *ProfileService) dailyRecord(ctx context.Context) (domain.DailyRecord, bool, error) {
	var record domain.DailyRecord
	ok, err := s.getJSON(ctx, keyDaily+s.today(), &record)
	return record, ok, err
}

func (s *ProfileService) AddInsightRecord(ctx context.Context, record domain.InsightRecord) (domain.InsightRecord, error) {
	if !record.Category.Valid() {
		return domain.InsightRecord{}, fmt.Errorf("%w: unknown insight category %q", domain.ErrValidation, record.Category)
	}
	if strings.TrimSpace(record.Question) == "" {
		return domain.InsightRecord{}, fmt.Errorf("%w: question is required", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record.ID = newID()
	record.Timestamp = s.clock()
	history := slices.Insert(slices.Clone(s.insightHistory), 0, record)
	if err := s.putJSON(ctx, keyInsightLog, history); err != nil {
		return domain.InsightRecord{}, err
	}
	s.insightHistory = history

	if !s.member {
		count, err := s.insightCount(ctx)
		if err != nil {
			return domain.InsightRecord{}, err
		}
		if err := s.putJSON(ctx, keyInsightCount+s.today(), count+1); err != nil {
			return domain.InsightRecord{}, err
		}
	}
	return record, nil
}

func (s *ProfileService) InsightHistory() []domain.InsightRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.insightHistory)
}

func (s *ProfileService) AddRitualRecord(ctx context.Context, record domain.RitualRecord) (domain.RitualRecord, error) {
	if record.HexagramID < 1 || record.HexagramID > 64 {
		return domain.RitualRecord{}, fmt.Errorf("%w: hexagram id %d out of range", domain.ErrValidation, record.HexagramID)
	}
	// Decision records carry a verdict note instead of cast lines.
	decision := len(record.Yaos) == 0 && strings.TrimSpace(record.Note) != ""
	if len(record.Yaos) != 6 && !decision {
		return domain.RitualRecord{}, fmt.Errorf("%w: a ritual needs six yaos, got %d", domain.ErrValidation, len(record.Yaos))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRitualRecord(ctx, record)
}

func (s *ProfileService) addRitualRecord(ctx context.Context, record domain.RitualRecord) (domain.RitualRecord, error) {
	record.ID = newID()
	record.Date = s.clock()
	record.Yaos = slices.Clone(record.Yaos)
	history := slices.Insert(slices.Clone(s.ritualHistory), 0, record)
	if err := s.putJSON(ctx, keyRitualLog, history); err != nil {
		return domain.RitualRecord{}, err
	}
	s.ritualHistory = history
	return record, nil
}

func (s *ProfileService) RitualHistory() []domain.RitualRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RitualRecord, len(s.ritualHistory))
	for i, r := range s.ritualHistory {
		r.Yaos = slices.Clone(r.Yaos)
		out[i] = r
	}
	return out
}

// CheckInsightAvailability ranks member over the free quota over paying
// with merit.
func (s *ProfileService) CheckInsightAvailability(ctx context.Context) (domain.InsightAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insightAvailability(ctx)
}

func (s *ProfileService) insightAvailability(ctx context.Context) (domain.InsightAvailability, error) {
	if s.member {
		return domain.InsightAvailability{Available: true, Reason: domain.AvailableMember}, nil
	}
	count, err := s.insightCount(ctx)
	if err != nil {
		return domain.InsightAvailability{}, err
	}
	if count < FreeInsightsDaily {
		return domain.InsightAvailability{Available: true, Reason: domain.AvailableFree}, nil
	}
	if s.merit >= InsightMeritPrice {
		return domain.InsightAvailability{Available: true, Reason: domain.AvailableMerit}, nil
	}
	return domain.InsightAvailability{Available: false, Reason: domain.AvailableNone}, nil
}

func (s *ProfileService) insightCount(ctx context.Context) (int, error) {
	var count int
	_, err := s.getJSON(ctx, keyInsightCount+s.today(), &count)
	return count, err
}

func (s *ProfileService) SetMembership(ctx context.Context, member bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putJSON(ctx, keyMember, member); err != nil {
		return err
	}
	s.member = member
	return nil
}

// GuardianCheckIn lights the lamp once per calendar day.
func (s *ProfileService) GuardianCheckIn(ctx context.Context) (domain.GuardianResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if s.lastGuardian != nil && s.sameDay(*s.lastGuardian, now) {
		return domain.GuardianResult{}, domain.ErrAlreadyCheckedIn
	}
	if err := s.putJSON(ctx, keyLastGuardian, now); err != nil {
		return domain.GuardianResult{}, err
	}
	s.lastGuardian = &now

	if _, err := s.addMerit(ctx, GuardianReward, domain.MeritGuardian, "点亮命灯"); err != nil {
		return domain.GuardianResult{}, err
	}

	if s.core != nil {
		hour := now.In(s.loc).Hour()
		var err error
		switch {
		case hour < 9:
			err = s.applyEnergy(ctx, domain.ActionGuardianEarly)
		case hour >= 21:
			err = s.applyEnergy(ctx, domain.ActionGuardianLate)
		}
		if err != nil {
			return domain.GuardianResult{}, err
		}
	}
	return domain.GuardianResult{Success: true, Reward: GuardianReward, CheckedInAt: now}, nil
}

func (s *ProfileService) GuardianStatus() domain.GuardianStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	var status domain.GuardianStatus
	if s.lastGuardian == nil {
		return status
	}
	last := *s.lastGuardian
	deadline := last.Add(GuardianWindow)
	status.LastCheckIn = &last
	status.CheckedInToday = s.sameDay(last, now)
	status.Deadline = &deadline
	if remaining := deadline.Sub(now); remaining > 0 {
		status.Remaining = remaining
	}
	if now.Sub(last) > GuardianWindow {
		status.Capsule = &domain.LegacyCapsule{
			TriggeredAt: deadline,
			Message:     "72 小时未点亮命灯，遗泽锦囊已开启",
		}
	}
	return status
}

func (s *ProfileService) UpdateEnergyState(ctx context.Context, action domain.EnergyAction) (domain.ElementVector, error) {
	if !action.Valid() {
		return domain.ElementVector{}, fmt.Errorf("%w: unknown energy action %q", domain.ErrValidation, action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.core == nil {
		return domain.ElementVector{}, domain.ErrNotReady
	}
	if err := s.applyEnergy(ctx, action); err != nil {
		return domain.ElementVector{}, err
	}
	return *s.core.CurrentEnergy, nil
}

func (s *ProfileService) applyEnergy(ctx context.Context, action domain.EnergyAction) error {
	core := *s.core
	energy := core.Elements
	if core.CurrentEnergy != nil {
		energy = *core.CurrentEnergy
	}
	energy = nudgeEnergy(energy, action)
	core.CurrentEnergy = &energy

	if err := s.putJSON(ctx, keyCoreStructure, core); err != nil {
		return err
	}
	s.core = &core
	return nil
}

// nudgeEnergy applies one feedback rule and clamps every element to [0,100].
func nudgeEnergy(v domain.ElementVector, action domain.EnergyAction) domain.ElementVector {
	switch action {
	case domain.ActionGuardianEarly:
		v.Wood += 2
		v.Fire++
	case domain.ActionGuardianLate:
		v.Earth++
	case domain.ActionRitualLate:
		v.Water += 2
	case domain.ActionRitualFrequent:
		v.Metal += 2
	case domain.ActionMeritGain:
		v.Earth += 2
		for _, e := range domain.Elements {
			if v.Get(e) > 60 {
				v.Set(e, v.Get(e)-1)
			}
		}
	}
	for _, e := range domain.Elements {
		v.Set(e, min(max(v.Get(e), 0), 100))
	}
	return v
}

// CurrentEnergy reports the evolving element vector, false before login.
func (s *ProfileService) CurrentEnergy() (domain.ElementVector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.core == nil || s.core.CurrentEnergy == nil {
		return domain.ElementVector{}, false
	}
	return *s.core.CurrentEnergy, true
}

// Archives merges insight and ritual history, newest first.
func (s *ProfileService) Archives() []domain.ArchiveEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ArchiveEntry, 0, len(s.insightHistory)+len(s.ritualHistory))
	for _, r := range s.insightHistory {
		out = append(out, domain.ArchiveEntry{
			ID:        r.ID,
			Kind:      "insight",
			Title:     r.Question,
			Content:   r.Answer,
			Timestamp: r.Timestamp,
		})
	}
	for _, r := range s.ritualHistory {
		content := r.Question
		if r.Note != "" {
			content = strings.TrimSpace(content + " " + r.Note)
		}
		out = append(out, domain.ArchiveEntry{
			ID:        r.ID,
			Kind:      "ritual",
			Title:     r.HexagramName,
			Content:   content,
			Timestamp: r.Date,
		})
	}
	slices.SortStableFunc(out, func(a, b domain.ArchiveEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// Today bundles the day's derived readings for the logged-in profile.
type Today struct {
	Date          string               `json:"date"`
	Daily         domain.HexagramRef   `json:"dailyHexagram"`
	Advice        domain.DailyAdvice   `json:"advice"`
	Base          domain.HexagramRef   `json:"baseHexagram"`
	Elements      domain.ElementVector `json:"elements"`
	SolarTerm     destiny.SolarTerm    `json:"solarTerm"`
	CurrentEnergy domain.ElementVector `json:"currentEnergy"`
}

func (s *ProfileService) Today() (Today, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return Today{}, domain.ErrNotReady
	}
	// The daily hexagram is keyed by the UTC date; everything else uses the local day.
	now := s.clock().In(s.loc)
	daily, ok := destiny.CalculateDailyHexagram(*s.profile, s.clock(), s.table)
	if !ok {
		return Today{}, domain.ErrNotReady
	}
	base, _ := destiny.CalculateBaseHexagram(*s.profile, s.table)
	elements, _ := destiny.CalculateElements(*s.profile)

	out := Today{
		Date:      now.Format(time.DateOnly),
		Daily:     daily,
		Advice:    destiny.DailyAdvice(daily.ID),
		Base:      base,
		Elements:  elements,
		SolarTerm: destiny.CurrentSolarTerm(now),
	}
	if s.core != nil && s.core.CurrentEnergy != nil {
		out.CurrentEnergy = *s.core.CurrentEnergy
	}
	return out, nil
}

func (s *ProfileService) Forecast() []destiny.DailyEnergy {
	return destiny.WeeklyForecast(s.clock().In(s.loc))
}

// Snapshot returns a detached copy of the whole store.
func (s *ProfileService) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(ctx)
}

func (s *ProfileService) snapshot(ctx context.Context) (domain.Snapshot, error) {
	count, err := s.insightCount(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	out := domain.Snapshot{
		LoggedIn:       s.profile != nil,
		Member:         s.member,
		Merit:          s.merit,
		MeritHistory:   slices.Clone(s.meritHistory),
		InsightCount:   count,
		InsightHistory: slices.Clone(s.insightHistory),
		RitualHistory:  make([]domain.RitualRecord, 0, len(s.ritualHistory)),
	}
	for _, r := range s.ritualHistory {
		r.Yaos = slices.Clone(r.Yaos)
		out.RitualHistory = append(out.RitualHistory, r)
	}
	if s.profile != nil {
		p := *s.profile
		out.Profile = &p
	}
	if s.core != nil {
		c := *s.core
		if c.CurrentEnergy != nil {
			e := *c.CurrentEnergy
			c.CurrentEnergy = &e
		}
		out.Core = &c
	}
	if s.first != nil {
		f := *s.first
		out.FirstHexagram = &f
	}
	if s.lastGuardian != nil {
		t := *s.lastGuardian
		out.LastGuardian = &t
	}
	if record, ok, err := s.dailyRecord(ctx); err != nil {
		return domain.Snapshot{}, err
	} else if ok {
		out.DailyRecord = &record
	}
	return out, nil
}

// recordDecision pays cost and stores the decision record under one lock, so
// a short balance leaves no record behind.
func (s *ProfileService) recordDecision(ctx context.Context, record domain.RitualRecord, cost int) (domain.RitualRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.merit < cost {
		return domain.RitualRecord{}, s.merit, fmt.Errorf("decision needs %d merit, have %d: %w", cost, s.merit, domain.ErrInsufficientMerit)
	}
	spend := domain.MeritRecord{
		ID:          newID(),
		Type:        domain.MeritConsume,
		Amount:      -cost,
		Timestamp:   s.clock(),
		Description: "decision_compass",
	}
	if err := s.recordMerit(ctx, s.merit-cost, spend); err != nil {
		return domain.RitualRecord{}, s.merit, err
	}
	metrics.MeritConsumed(cost)

	stored, err := s.addRitualRecord(ctx, record)
	if err != nil {
		return domain.RitualRecord{}, s.merit, err
	}
	return stored, s.merit, nil
}

// StateExport is every stored document of the namespace, keyed without the prefix.
type StateExport struct {
	Namespace  string                     `json:"namespace"`
	ExportedAt time.Time                  `json:"exportedAt"`
	Entries    map[string]json.RawMessage `json:"entries"`
}

func (s *ProfileService) Export(ctx context.Context) (StateExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.repo.List(ctx, s.namespace)
	if err != nil {
		return StateExport{}, fmt.Errorf("list state: %w", err)
	}
	out := StateExport{
		Namespace:  s.namespace,
		ExportedAt: s.clock(),
		Entries:    make(map[string]json.RawMessage, len(raw)),
	}
	for key, value := range raw {
		out.Entries[strings.TrimPrefix(key, s.namespace)] = json.RawMessage(value)
	}
	return out, nil
}

func (s *ProfileService) key(entity string) string {
	return s.namespace + entity
}

// clock returns the current instant in UTC so persisted values round-trip exactly.
func (s *ProfileService) clock() time.Time {
	return s.now().UTC().Round(0)
}

func (s *ProfileService) today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}

func (s *ProfileService) sameDay(a, b time.Time) bool {
	return a.In(s.loc).Format(time.DateOnly) == b.In(s.loc).Format(time.DateOnly)
}

func (s *ProfileService) getJSON(ctx context.Context, entity string, v any) (bool, error) {
	raw, err := s.repo.Get(ctx, s.key(entity))
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", entity, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", entity, err)
	}
	return true, nil
}

func (s *ProfileService) putJSON(ctx context.Context, entity string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", entity, err)
	}
	if err := s.repo.Put(ctx, s.key(entity), raw); err != nil {
		return fmt.Errorf("store %s: %w", entity, err)
	}
	return nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
