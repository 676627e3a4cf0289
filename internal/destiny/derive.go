package destiny

import (
	"math"
	"strings"
	"time"

	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/herohuhu666/wanwu/internal/hexagram"
)

var lifeHexagramNames = [9]string{"乾", "兑", "离", "震", "巽", "坎", "艮", "坤", "中"}

var cultivationAxes = [6]domain.CultivationAxis{
	domain.CultivationGuardHeart,
	domain.CultivationSteadyWalk,
	domain.CultivationReflect,
	domain.CultivationFlow,
	domain.CultivationAdvance,
	domain.CultivationClarity,
}

var temperaments = [5]domain.Temperament{
	domain.TemperamentActive,
	domain.TemperamentQuiet,
	domain.TemperamentSteady,
	domain.TemperamentFirm,
	domain.TemperamentYielding,
}

var firstStatuses = [3]domain.HexagramStatus{domain.StatusNeutral, domain.StatusAuspicious, domain.StatusCautious}

// coreShifts selects the seed bits feeding each element, in domain.Elements order.
var coreShifts = [5]uint{0, 3, 6, 9, 12}

var adviceTable = []domain.DailyAdvice{
	{Recommend: "静心", Avoid: "躁动"},
	{Recommend: "进取", Avoid: "退缩"},
	{Recommend: "沟通", Avoid: "独断"},
	{Recommend: "反省", Avoid: "冒进"},
	{Recommend: "合作", Avoid: "孤立"},
}

// Ready reports whether the fields every profile derivation needs are present.
func Ready(p domain.LifeParameters) bool {
	return strings.TrimSpace(p.Nickname) != "" &&
		strings.TrimSpace(p.BirthDate) != "" &&
		strings.TrimSpace(p.BirthCity) != ""
}

func profileSeed(p domain.LifeParameters) uint64 {
	return uint64(Hash(p.Nickname)) + uint64(Hash(p.BirthDate)) + uint64(Hash(p.BirthCity))
}

// DeriveCoreStructure computes the lifelong structure. Each element is rounded
// on its own, so the five percentages may sum to 98..102.
func DeriveCoreStructure(p domain.LifeParameters) (domain.UserCoreStructure, bool) {
	if !Ready(p) {
		return domain.UserCoreStructure{}, false
	}
	seed := profileSeed(p)

	var raw [5]uint64
	var total uint64
	for i, shift := range coreShifts {
		raw[i] = (seed>>shift)%40 + 10
		total += raw[i]
	}

	var elements domain.ElementVector
	for i, e := range domain.Elements {
		pct := float64(raw[i]) / float64(total) * 100
		elements.Set(e, int(math.Floor(pct+0.5)))
	}
	energy := elements

	lifeHexagram := int(seed%9) + 1
	return domain.UserCoreStructure{
		LifeHexagram:     lifeHexagram,
		LifeHexagramName: lifeHexagramNames[lifeHexagram-1],
		Elements:         elements,
		CurrentEnergy:    &energy,
		CultivationAxis:  cultivationAxes[seed%6],
		Temperament:      temperaments[seed%5],
	}, true
}

func DeriveFirstHexagram(p domain.LifeParameters, table *hexagram.Table) (domain.FirstHexagram, bool) {
	if !Ready(p) {
		return domain.FirstHexagram{}, false
	}
	seed := profileSeed(p)
	id := int(seed%64) + 1

	h, ok := table.ByID(id)
	if !ok {
		h, _ = table.ByID(1)
	}
	return domain.FirstHexagram{
		ID:     id,
		Name:   h.Name,
		Status: firstStatuses[seed%3],
		Advice: h.Advice(),
		Action: h.Action(),
	}, true
}

func CalculateBaseHexagram(p domain.LifeParameters, table *hexagram.Table) (domain.HexagramRef, bool) {
	if !Ready(p) {
		return domain.HexagramRef{}, false
	}
	seed := Hash(p.Nickname + "-" + p.BirthDate + "-" + p.BirthTime)
	return lookupRef(table, int(seed%64)+1, 1), true
}

// CalculateDailyHexagram rotates once per calendar day of day.
func CalculateDailyHexagram(p domain.LifeParameters, day time.Time, table *hexagram.Table) (domain.HexagramRef, bool) {
	if !Ready(p) {
		return domain.HexagramRef{}, false
	}
	seed := Hash(p.Nickname + "-" + p.BirthDate + "-" + day.Format(time.DateOnly))
	return lookupRef(table, int(seed%64)+1, 2), true
}

// CalculateElements gives independent 0..99 magnitudes; unlike the core
// structure they are not normalized.
func CalculateElements(p domain.LifeParameters) (domain.ElementVector, bool) {
	if strings.TrimSpace(p.BirthDate) == "" {
		return domain.ElementVector{}, false
	}
	h := Hash(p.BirthDate + "-" + p.BirthTime)
	return domain.ElementVector{
		Wood:  int(h % 100),
		Fire:  int((h >> 2) % 100),
		Earth: int((h >> 4) % 100),
		Metal: int((h >> 6) % 100),
		Water: int((h >> 8) % 100),
	}, true
}

func DailyAdvice(hexagramID int) domain.DailyAdvice {
	idx := hexagramID % len(adviceTable)
	if idx < 0 {
		idx += len(adviceTable)
	}
	return adviceTable[idx]
}

func lookupRef(table *hexagram.Table, id, fallback int) domain.HexagramRef {
	h, ok := table.ByID(id)
	if !ok {
		h, _ = table.ByID(fallback)
	}
	ref := h.Ref()
	ref.ID = id
	return ref
}
