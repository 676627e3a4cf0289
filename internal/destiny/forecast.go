package destiny

import (
	"time"

	"github.com/herohuhu666/wanwu/internal/domain"
)

type DailyEnergy struct {
	Date            string         `json:"date"`
	DayName         string         `json:"dayName"`
	EnergyLevel     int            `json:"energyLevel"`
	DominantElement domain.Element `json:"dominantElement"`
	Recommendation  string         `json:"recommendation"`
	Avoid           string         `json:"avoid"`
}

var weekdayNames = [7]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

var elementGuidance = map[domain.Element]domain.DailyAdvice{
	domain.ElementWood:  {Recommend: "创意、规划、生长", Avoid: "争执、砍伐"},
	domain.ElementFire:  {Recommend: "演讲、社交、行动", Avoid: "冲动、熬夜"},
	domain.ElementEarth: {Recommend: "复盘、静坐、包容", Avoid: "变动、搬迁"},
	domain.ElementMetal: {Recommend: "决策、清理、决断", Avoid: "纠结、拖延"},
	domain.ElementWater: {Recommend: "思考、独处、滋养", Avoid: "泛滥、沉溺"},
}

// WeeklyForecast returns seven days of energy starting with from's calendar day.
func WeeklyForecast(from time.Time) []DailyEnergy {
	out := make([]DailyEnergy, 0, 7)
	for i := 0; i < 7; i++ {
		day := from.AddDate(0, 0, i)
		seed := day.Day() + int(day.Month()) - 1
		element := domain.Elements[seed%len(domain.Elements)]
		guidance := elementGuidance[element]

		name := weekdayNames[day.Weekday()]
		if i == 0 {
			name = "今日"
		}
		out = append(out, DailyEnergy{
			Date:            day.Format(time.DateOnly),
			DayName:         name,
			EnergyLevel:     40 + (seed*7)%60,
			DominantElement: element,
			Recommendation:  guidance.Recommend,
			Avoid:           guidance.Avoid,
		})
	}
	return out
}
