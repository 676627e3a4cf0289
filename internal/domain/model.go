package domain

import "time"

type Element string

const (
	ElementWood  Element = "wood"
	ElementFire  Element = "fire"
	ElementEarth Element = "earth"
	ElementMetal Element = "metal"
	ElementWater Element = "water"
)

// Elements lists the five elements in their canonical order.
var Elements = []Element{ElementWood, ElementFire, ElementEarth, ElementMetal, ElementWater}

func (e Element) Valid() bool {
	switch e {
	case ElementWood, ElementFire, ElementEarth, ElementMetal, ElementWater:
		return true
	}
	return false
}

// ElementVector holds one magnitude per element.
type ElementVector struct {
	Wood  int `json:"wood"`
	Fire  int `json:"fire"`
	Earth int `json:"earth"`
	Metal int `json:"metal"`
	Water int `json:"water"`
}

func (v ElementVector) Get(e Element) int {
	switch e {
	case ElementWood:
		return v.Wood
	case ElementFire:
		return v.Fire
	case ElementEarth:
		return v.Earth
	case ElementMetal:
		return v.Metal
	case ElementWater:
		return v.Water
	}
	return 0
}

func (v *ElementVector) Set(e Element, value int) {
	switch e {
	case ElementWood:
		v.Wood = value
	case ElementFire:
		v.Fire = value
	case ElementEarth:
		v.Earth = value
	case ElementMetal:
		v.Metal = value
	case ElementWater:
		v.Water = value
	}
}

func (v ElementVector) Sum() int {
	return v.Wood + v.Fire + v.Earth + v.Metal + v.Water
}

type LifeParameters struct {
	Nickname  string `json:"nickname"`
	BirthDate string `json:"birthDate"`
	BirthTime string `json:"birthTime,omitempty"`
	BirthCity string `json:"birthCity"`
}

type CultivationAxis string

const (
	CultivationGuardHeart CultivationAxis = "守心"
	CultivationSteadyWalk CultivationAxis = "稳行"
	CultivationReflect    CultivationAxis = "自省"
	CultivationFlow       CultivationAxis = "顺势"
	CultivationAdvance    CultivationAxis = "精进"
	CultivationClarity    CultivationAxis = "清明"
)

type Temperament string

const (
	TemperamentActive   Temperament = "偏动"
	TemperamentQuiet    Temperament = "偏静"
	TemperamentSteady   Temperament = "偏稳"
	TemperamentFirm     Temperament = "偏刚"
	TemperamentYielding Temperament = "偏柔"
)

type HexagramStatus string

const (
	StatusAuspicious HexagramStatus = "吉"
	StatusNeutral    HexagramStatus = "平"
	StatusCautious   HexagramStatus = "慎"
)

type UserCoreStructure struct {
	LifeHexagram     int             `json:"lifeHexagram"`
	LifeHexagramName string          `json:"lifeHexagramName"`
	Elements         ElementVector   `json:"elements"`
	CurrentEnergy    *ElementVector  `json:"currentEnergy,omitempty"`
	CultivationAxis  CultivationAxis `json:"cultivationAxis"`
	Temperament      Temperament     `json:"temperament"`
}

type FirstHexagram struct {
	ID     int            `json:"id"`
	Name   string         `json:"name"`
	Status HexagramStatus `json:"status"`
	Advice string         `json:"advice"`
	Action string         `json:"action"`
}

// HexagramRef is the short form returned by the derivation engine.
type HexagramRef struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Nature string `json:"nature"`
}

type DailyAdvice struct {
	Recommend string `json:"recommend"`
	Avoid     string `json:"avoid"`
}

type MeritType string

const (
	MeritCheckIn      MeritType = "check_in"
	MeritGuardian     MeritType = "guardian"
	MeritPray         MeritType = "pray"
	MeritAltruism     MeritType = "altruism"
	MeritReflection   MeritType = "reflection"
	MeritFirstRitual  MeritType = "first_ritual"
	MeritFirstInsight MeritType = "first_insight"
	MeritConsume      MeritType = "consume"
	MeritWoodenFish   MeritType = "wooden_fish"
)

func (t MeritType) Valid() bool {
	switch t {
	case MeritCheckIn, MeritGuardian, MeritPray, MeritAltruism, MeritReflection,
		MeritFirstRitual, MeritFirstInsight, MeritConsume, MeritWoodenFish:
		return true
	}
	return false
}

type MeritRecord struct {
	ID          string    `json:"id"`
	Type        MeritType `json:"type"`
	Amount      int       `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"desc"`
}

type InsightCategory string

const (
	InsightCareer       InsightCategory = "career"
	InsightRelationship InsightCategory = "relationship"
	InsightHealth       InsightCategory = "health"
	InsightEmotion      InsightCategory = "emotion"
	InsightLife         InsightCategory = "life"
	InsightRandom       InsightCategory = "random"
)

func (c InsightCategory) Valid() bool {
	switch c {
	case InsightCareer, InsightRelationship, InsightHealth, InsightEmotion, InsightLife, InsightRandom:
		return true
	}
	return false
}

type InsightRecord struct {
	ID        string          `json:"id"`
	Category  InsightCategory `json:"category"`
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	Timestamp time.Time       `json:"timestamp"`
	IsDeep    bool            `json:"isDeep"`
}

// Yao is a single hexagram line: 1 is yang, 0 is yin.
type Yao int

const (
	Yin  Yao = 0
	Yang Yao = 1
)

type RitualRecord struct {
	ID           string    `json:"id"`
	HexagramID   int       `json:"hexagramId"`
	HexagramName string    `json:"hexagramName"`
	Yaos         []Yao     `json:"yaos"`
	Question     string    `json:"question,omitempty"`
	Date         time.Time `json:"date"`
	Note         string    `json:"note,omitempty"`
}

type DailyState string

const (
	DailySteady  DailyState = "steady"
	DailyAdvance DailyState = "advance"
	DailyRetreat DailyState = "retreat"
)

func (s DailyState) Valid() bool {
	return s == DailySteady || s == DailyAdvance || s == DailyRetreat
}

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

func (l EnergyLevel) Valid() bool {
	return l == EnergyLow || l == EnergyMedium || l == EnergyHigh
}

type SleepQuality string

const (
	SleepPoor SleepQuality = "poor"
	SleepFair SleepQuality = "fair"
	SleepGood SleepQuality = "good"
)

func (q SleepQuality) Valid() bool {
	return q == SleepPoor || q == SleepFair || q == SleepGood
}

type DailyRecord struct {
	Date      string       `json:"date"`
	State     DailyState   `json:"state"`
	Energy    EnergyLevel  `json:"energy"`
	Sleep     SleepQuality `json:"sleep"`
	Completed bool         `json:"completed"`
}

type EnergyAction string

const (
	ActionGuardianEarly  EnergyAction = "guardian_early"
	ActionGuardianLate   EnergyAction = "guardian_late"
	ActionRitualLate     EnergyAction = "ritual_late"
	ActionRitualFrequent EnergyAction = "ritual_frequent"
	ActionMeritGain      EnergyAction = "merit_gain"
)

func (a EnergyAction) Valid() bool {
	switch a {
	case ActionGuardianEarly, ActionGuardianLate, ActionRitualLate, ActionRitualFrequent, ActionMeritGain:
		return true
	}
	return false
}

type AvailabilityReason string

const (
	AvailableMember AvailabilityReason = "member"
	AvailableFree   AvailabilityReason = "free"
	AvailableMerit  AvailabilityReason = "merit"
	AvailableNone   AvailabilityReason = "none"
)

type InsightAvailability struct {
	Available bool               `json:"available"`
	Reason    AvailabilityReason `json:"reason"`
}

type GuardianResult struct {
	Success     bool      `json:"success"`
	Reward      int       `json:"reward"`
	CheckedInAt time.Time `json:"checkedInAt"`
}

type LegacyCapsule struct {
	TriggeredAt time.Time `json:"triggeredAt"`
	Message     string    `json:"message"`
}

type GuardianStatus struct {
	LastCheckIn    *time.Time     `json:"lastCheckIn"`
	CheckedInToday bool           `json:"checkedInToday"`
	Deadline       *time.Time     `json:"deadline,omitempty"`
	Remaining      time.Duration  `json:"remaining"`
	Capsule        *LegacyCapsule `json:"capsule,omitempty"`
}

// ArchiveEntry is the combined insight/ritual history view.
type ArchiveEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a detached copy of everything the profile store holds.
type Snapshot struct {
	LoggedIn       bool               `json:"isLoggedIn"`
	Member         bool               `json:"isMember"`
	Profile        *LifeParameters    `json:"profile"`
	Core           *UserCoreStructure `json:"coreStructure"`
	FirstHexagram  *FirstHexagram     `json:"firstHexagram"`
	Merit          int                `json:"merit"`
	MeritHistory   []MeritRecord      `json:"meritHistory"`
	InsightCount   int                `json:"insightCount"`
	InsightHistory []InsightRecord    `json:"insightHistory"`
	RitualHistory  []RitualRecord     `json:"ritualHistory"`
	LastGuardian   *time.Time         `json:"lastGuardianTime"`
	DailyRecord    *DailyRecord       `json:"dailyRecord"`
}
