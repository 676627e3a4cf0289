package application

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/herohuhu666/wanwu/internal/adapters/db/memory"
	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/herohuhu666/wanwu/internal/hexagram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYangProbability(t *testing.T) {
	assert.Equal(t, 0.8, YangProbability(domain.ElementVector{Wood: 80, Fire: 80, Metal: 80, Earth: 10, Water: 10}))
	assert.Equal(t, 0.2, YangProbability(domain.ElementVector{Earth: 50, Water: 50}))
	assert.Equal(t, 0.5, YangProbability(domain.ElementVector{}))
	assert.InDelta(t, 0.6, YangProbability(domain.ElementVector{Wood: 20, Fire: 20, Metal: 20, Earth: 20, Water: 20}), 1e-9)
}

func TestWeightedDrawClampsAtUpperBound(t *testing.T) {
	ctx := context.Background()
	profile := newTestProfile(t, memory.NewRepository(), &fakeClock{t: time.Date(2026, 10, 15, 10, 0, 0, 0, cst)})
	_, err := profile.Login(ctx, scenarioParams)
	require.NoError(t, err)

	skewed := domain.ElementVector{Wood: 80, Fire: 80, Metal: 80, Earth: 10, Water: 10}
	profile.core.CurrentEnergy = &skewed

	rituals := NewRitualService(profile, WithRand(rand.New(rand.NewPCG(42, 1024))))
	const trials = 10000
	yang := 0
	for range trials {
		if rituals.draw() == domain.Yang {
			yang++
		}
	}
	assert.InDelta(t, 0.8, float64(yang)/trials, 0.02)
}

func TestManualSessionResolvesAfterSixShakes(t *testing.T) {
	ctx := context.Background()
	profile := newTestProfile(t, memory.NewRepository(), &fakeClock{t: time.Date(2026, 10, 15, 10, 0, 0, 0, cst)})
	_, err := profile.Login(ctx, scenarioParams)
	require.NoError(t, err)
	before, _ := profile.CurrentEnergy()

	rituals := NewRitualService(profile, WithRand(rand.New(rand.NewPCG(3, 4))))
	session := rituals.Begin("  今年运势  ")
	assert.Equal(t, RitualIdle, session.State)
	assert.Equal(t, "今年运势", session.Question)
	require.Len(t, rituals.Open(), 1)

	for i := 1; i < 6; i++ {
		session, err = rituals.Shake(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, RitualShaking, session.State)
		assert.Len(t, session.Yaos, i)
	}

	session, err = rituals.Shake(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, RitualResolved, session.State)
	require.NotNil(t, session.Record)
	require.Len(t, session.Lines, 6)

	h, ok := hexagram.Default().ByLines(hexagram.LinesKey(session.Yaos))
	require.True(t, ok)
	assert.Equal(t, h.ID, session.Record.HexagramID)
	assert.Equal(t, h.Name, session.Record.HexagramName)
	assert.Equal(t, "今年运势", session.Record.Question)

	history := profile.RitualHistory()
	require.Len(t, history, 1)
	assert.Equal(t, session.Record.ID, history[0].ID)

	after, _ := profile.CurrentEnergy()
	assert.Equal(t, nudgeEnergy(before, domain.ActionRitualFrequent), after)

	_, err = rituals.Shake(ctx, session.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, rituals.Open())
}

func TestLateCastFeedsWater(t *testing.T) {
	ctx := context.Background()
	profile := newTestProfile(t, memory.NewRepository(), &fakeClock{t: time.Date(2026, 10, 15, 2, 0, 0, 0, cst)})
	_, err := profile.Login(ctx, scenarioParams)
	require.NoError(t, err)
	before, _ := profile.CurrentEnergy()

	rituals := NewRitualService(profile, WithAutoDelay(0))
	session, err := rituals.Cast(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, RitualResolved, session.State)

	after, _ := profile.CurrentEnergy()
	assert.Equal(t, nudgeEnergy(before, domain.ActionRitualLate), after)
}

func TestCastWithoutProfileStillRecords(t *testing.T) {
	profile := newTestProfile(t, memory.NewRepository(), &fakeClock{t: time.Now()})
	rituals := NewRitualService(profile)

	session, err := rituals.Cast(context.Background(), "随缘", false)
	require.NoError(t, err)
	assert.Equal(t, RitualResolved, session.State)
	assert.Len(t, profile.RitualHistory(), 1)
	_, ok := profile.CurrentEnergy()
	assert.False(t, ok)
}

func TestAutoCastHonoursCancellation(t *testing.T) {
	profile := newTestProfile(t, memory.NewRepository(), &fakeClock{t: time.Now()})
	rituals := NewRitualService(profile, WithAutoDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rituals.Cast(ctx, "", true)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, profile.RitualHistory())
}

func TestLookupMissFailsWithoutFallback(t *testing.T) {
	empty, err := hexagram.NewTable(nil)
	require.NoError(t, err)

	profile, err := NewProfileService(context.Background(), memory.NewRepository(), WithTable(empty))
	require.NoError(t, err)
	rituals := NewRitualService(profile)

	session, err := rituals.Cast(context.Background(), "", false)
	require.ErrorIs(t, err, domain.ErrHexagramGeneration)
	assert.Contains(t, err.Error(), "hexagram generation failed")
	assert.Equal(t, RitualFailed, session.State)
	assert.Nil(t, session.Record)
	assert.Empty(t, profile.RitualHistory())

	manual := rituals.Begin("")
	for i := 0; i < 5; i++ {
		_, err = rituals.Shake(context.Background(), manual.ID)
		require.NoError(t, err)
	}
	manual, err = rituals.Shake(context.Background(), manual.ID)
	require.ErrorIs(t, err, domain.ErrHexagramGeneration)
	assert.Equal(t, RitualFailed, manual.State)
}

func TestDecideSpendsMeritAndRecordsVerdict(t *testing.T) {
	ctx := context.Background()
	profile := newTestProfile(t, memory.NewRepository(), &fakeClock{t: time.Date(2026, 10, 15, 10, 0, 0, 0, cst)})
	_, err := profile.Login(ctx, scenarioParams)
	require.NoError(t, err)
	rituals := NewRitualService(profile, WithRand(rand.New(rand.NewPCG(5, 6))))

	decision, err := rituals.Decide(ctx, "  换工作吗  ")
	require.NoError(t, err)
	assert.Equal(t, 106, decision.Balance)
	assert.GreaterOrEqual(t, decision.Hexagram.ID, 1)
	assert.LessOrEqual(t, decision.Hexagram.ID, 64)
	assert.Equal(t, "换工作吗", decision.Record.Question)
	assert.Equal(t, "暂缓行动，静待良机", decision.Record.Note)
	assert.NotNil(t, decision.Record.Yaos)
	assert.Empty(t, decision.Record.Yaos)

	balance, history := profile.Merit()
	assert.Equal(t, 106, balance)
	assert.Equal(t, domain.MeritConsume, history[0].Type)
	assert.Equal(t, -DecisionCost, history[0].Amount)
	assert.Equal(t, "decision_compass", history[0].Description)

	records := profile.RitualHistory()
	require.Len(t, records, 1)
	assert.Equal(t, decision.Record.ID, records[0].ID)
}

func TestDecideWithoutEnoughMeritChangesNothing(t *testing.T) {
	ctx := context.Background()
	profile := newTestProfile(t, memory.NewRepository(), &fakeClock{t: time.Date(2026, 10, 15, 10, 0, 0, 0, cst)})
	_, err := profile.Login(ctx, scenarioParams)
	require.NoError(t, err)
	ok, err := profile.ConsumeMerit(ctx, 108, "供灯")
	require.NoError(t, err)
	require.True(t, ok)

	rituals := NewRitualService(profile)
	_, err = rituals.Decide(ctx, "出行")
	require.ErrorIs(t, err, domain.ErrInsufficientMerit)

	balance, history := profile.Merit()
	assert.Equal(t, 3, balance)
	assert.Len(t, history, 2)
	assert.Empty(t, profile.RitualHistory())

	_, err = rituals.Decide(ctx, "   ")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCatalogSpellsOutLines(t *testing.T) {
	profile := newTestProfile(t, memory.NewRepository(), &fakeClock{t: time.Now()})
	rituals := NewRitualService(profile)

	catalog := rituals.Catalog()
	require.Len(t, catalog, 64)
	assert.Equal(t, 1, catalog[0].ID)
	assert.Equal(t, []domain.Yao{1, 1, 1, 1, 1, 1}, catalog[0].Yaos)

	entry, err := rituals.Hexagram(2)
	require.NoError(t, err)
	assert.Equal(t, []domain.Yao{0, 0, 0, 0, 0, 0}, entry.Yaos)

	_, err = rituals.Hexagram(65)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
