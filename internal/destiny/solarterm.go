package destiny

import (
	"math"
	"time"
)

type SolarTerm struct {
	Name    string `json:"name"`
	Meaning string `json:"meaning"`
	Wisdom  string `json:"wisdom"`
}

type solarTermEntry struct {
	SolarTerm
	month time.Month
	c     float64 // 21st-century day constant
}

// solarTerms is in calendar order, two terms per month starting with 小寒.
var solarTerms = [24]solarTermEntry{
	{SolarTerm{"小寒", "Minor Cold", "小寒宜近火，安身静体。潜龙勿用，积蓄能量。"}, time.January, 5.4055},
	{SolarTerm{"大寒", "Major Cold", "大寒岂无春，坚冰深处春水生。耐得住寂寞，方见繁华。"}, time.January, 20.12},
	{SolarTerm{"立春", "Start of Spring", "东风解冻，蛰虫始振。万物复苏之际，宜立愿，宜布施。"}, time.February, 3.87},
	{SolarTerm{"雨水", "Rain Water", "好雨知时节，当春乃发生。润物细无声，宜滋养身心，温和待人。"}, time.February, 18.73},
	{SolarTerm{"惊蛰", "Awakening of Insects", "春雷响，万物长。阳气初惊，宜以此卦唤醒沉睡的计划。"}, time.March, 5.63},
	{SolarTerm{"春分", "Spring Equinox", "阴阳相半，昼夜均而寒暑平。宜平衡身心，不偏不倚。"}, time.March, 20.646},
	{SolarTerm{"清明", "Clear and Bright", "万物生长此时，皆清洁而明净。宜扫除心尘，慎终追远。"}, time.April, 4.81},
	{SolarTerm{"谷雨", "Grain Rain", "雨生百谷，生机勃发。宜播种希望，静待花开。"}, time.April, 20.1},
	{SolarTerm{"立夏", "Start of Summer", "斗指东南，维为立夏。万物至此皆长大，宜精进，宜热烈。"}, time.May, 5.52},
	{SolarTerm{"小满", "Grain Buds", "小得盈满，物致于此小得盈满。人生最好是小满，花未全开月未圆。"}, time.May, 21.04},
	{SolarTerm{"芒种", "Grain in Ear", "时雨及芒种，四野皆插秧。一分耕耘一分收获，宜忙碌，宜充实。"}, time.June, 5.678},
	{SolarTerm{"夏至", "Summer Solstice", "日北至，日长之至。阳气至极，宜静心养阴，避暑宁神。"}, time.June, 21.37},
	{SolarTerm{"小暑", "Minor Heat", "倏忽温风至，因循小暑来。心静自然凉，宜纳凉，宜清淡。"}, time.July, 7.108},
	{SolarTerm{"大暑", "Major Heat", "大暑三秋近，林钟九夏移。大汗淋漓后，更觉清风爽。宜排毒，宜释怀。"}, time.July, 22.83},
	{SolarTerm{"立秋", "Start of Autumn", "一叶梧桐一报秋，稻花香里说丰年。繁华落尽见真淳，宜收敛，宜沉淀。"}, time.August, 7.5},
	{SolarTerm{"处暑", "Limit of Heat", "离离暑云散，袅袅凉风起。天地始肃，宜冷静思考，去伪存真。"}, time.August, 23.13},
	{SolarTerm{"白露", "White Dew", "露从今夜白，月是故乡明。天凉好个秋，宜收敛心神，不宜冒进。"}, time.September, 7.646},
	{SolarTerm{"秋分", "Autumn Equinox", "平分秋色一轮满，长伴云衢千里明。阴阳平衡，宜检视得失，不喜不悲。"}, time.September, 23.042},
	{SolarTerm{"寒露", "Cold Dew", "袅袅凉风动，凄凄寒露零。寒气渐重，宜温暖身心，关爱自我。"}, time.October, 8.318},
	{SolarTerm{"霜降", "Frost's Descent", "霜叶红于二月花。秋之将尽，冬之将至。宜为寒冬储备温暖。"}, time.October, 23.438},
	{SolarTerm{"立冬", "Start of Winter", "冻笔新诗懒写，寒炉美酒时温。万物收藏，宜藏精纳气，休养生息。"}, time.November, 7.438},
	{SolarTerm{"小雪", "Minor Snow", "晚来天欲雪，能饮一杯无？寒意初现，宜围炉夜话，温暖相伴。"}, time.November, 22.36},
	{SolarTerm{"大雪", "Major Snow", "柴门闻犬吠，风雪夜归人。瑞雪兆丰年，宜静待时机，厚积薄发。"}, time.December, 7.18},
	{SolarTerm{"冬至", "Winter Solstice", "天时人事日相催，冬至阳生春又来。一阳复始，宜重整旗鼓，充满希望。"}, time.December, 21.94},
}

// SolarTermDay estimates the day of month a term starts in year with
// [Y*0.2422 + C] - [Y/4], where Y is the last two digits of the year.
func SolarTermDay(year int, index int) int {
	y := year % 100
	return int(math.Floor(float64(y)*0.2422+solarTerms[index].c)) - y/4
}

// CurrentSolarTerm returns the latest term that started on or before t's
// calendar date. Days before 小寒 belong to the previous year's 冬至.
func CurrentSolarTerm(t time.Time) SolarTerm {
	year, month, day := t.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	current := solarTerms[len(solarTerms)-1].SolarTerm
	for i, term := range solarTerms {
		start := time.Date(year, term.month, SolarTermDay(year, i), 0, 0, 0, 0, time.UTC)
		if start.After(today) {
			break
		}
		current = term.SolarTerm
	}
	return current
}
