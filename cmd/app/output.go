package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/herohuhu666/wanwu/internal/application"
	"github.com/herohuhu666/wanwu/internal/destiny"
	"github.com/herohuhu666/wanwu/internal/domain"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatMaybeTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func formatElements(v domain.ElementVector) string {
	return fmt.Sprintf("木%d 火%d 土%d 金%d 水%d", v.Wood, v.Fire, v.Earth, v.Metal, v.Water)
}

func formatYaos(yaos []domain.Yao) string {
	var b strings.Builder
	for _, y := range yaos {
		if y == domain.Yang {
			b.WriteString("⚊")
		} else {
			b.WriteString("⚋")
		}
	}
	return b.String()
}

func printSnapshot(s domain.Snapshot) {
	if !s.LoggedIn || s.Profile == nil {
		printKV([][2]string{{"logged_in", "false"}, {"merit", strconv.Itoa(s.Merit)}})
		return
	}
	rows := [][2]string{
		{"nickname", s.Profile.Nickname},
		{"birth", strings.TrimSpace(s.Profile.BirthDate + " " + s.Profile.BirthTime)},
		{"city", s.Profile.BirthCity},
		{"member", strconv.FormatBool(s.Member)},
		{"merit", strconv.Itoa(s.Merit)},
		{"last_guardian", formatMaybeTime(s.LastGuardian)},
	}
	if s.Core != nil {
		rows = append(rows,
			[2]string{"life_hexagram", s.Core.LifeHexagramName},
			[2]string{"elements", formatElements(s.Core.Elements)},
			[2]string{"cultivation", string(s.Core.CultivationAxis)},
			[2]string{"temperament", string(s.Core.Temperament)},
		)
		if s.Core.CurrentEnergy != nil {
			rows = append(rows, [2]string{"current_energy", formatElements(*s.Core.CurrentEnergy)})
		}
	}
	if s.FirstHexagram != nil {
		rows = append(rows, [2]string{"first_hexagram", fmt.Sprintf("%s (%s) %s", s.FirstHexagram.Name, s.FirstHexagram.Status, s.FirstHexagram.Advice)})
	}
	printKV(rows)
}

func printMeritHistory(balance int, history []domain.MeritRecord) {
	fmt.Printf("balance: %d\n", balance)
	rows := make([][]string, 0, len(history))
	for _, r := range history {
		rows = append(rows, []string{formatTime(r.Timestamp), string(r.Type), strconv.Itoa(r.Amount), r.Description})
	}
	printTable([]string{"TIME", "TYPE", "AMOUNT", "DESC"}, rows)
}

func printRitualSession(s application.RitualSession) {
	rows := [][2]string{
		{"id", s.ID},
		{"state", string(s.State)},
		{"yaos", fmt.Sprintf("%s (%d/6)", formatYaos(s.Yaos), len(s.Yaos))},
	}
	if s.Record != nil {
		rows = append(rows, [2]string{"hexagram", fmt.Sprintf("%d %s", s.Record.HexagramID, s.Record.HexagramName)})
	}
	if s.Judgment != "" {
		rows = append(rows, [2]string{"judgment", s.Judgment})
	}
	printKV(rows)
	for _, line := range s.Lines {
		fmt.Printf("  %s  %s\n", line.Label, line.Text)
	}
}

func printRitualHistory(items []domain.RitualRecord) {
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		lines := formatYaos(r.Yaos)
		if len(r.Yaos) == 0 {
			lines = r.Note
		}
		rows = append(rows, []string{formatTime(r.Date), strconv.Itoa(r.HexagramID), r.HexagramName, lines, r.Question})
	}
	printTable([]string{"DATE", "ID", "NAME", "YAOS", "QUESTION"}, rows)
}

func printDecision(d application.Decision) {
	printKV([][2]string{
		{"question", d.Record.Question},
		{"hexagram", fmt.Sprintf("%d %s %s", d.Hexagram.ID, d.Hexagram.Name, d.Hexagram.Nature)},
		{"judgment", d.Judgment},
		{"situation", d.Analysis.Situation},
		{"risk", d.Analysis.Risk},
		{"action", d.Analysis.Action},
		{"verdict", d.Analysis.Verdict},
		{"balance", strconv.Itoa(d.Balance)},
	})
}

func printHexagramList(items []application.HexagramEntry) {
	rows := make([][]string, 0, len(items))
	for _, h := range items {
		rows = append(rows, []string{strconv.Itoa(h.ID), h.Symbol, h.Name, formatYaos(h.Yaos), string(h.Element), h.Nature})
	}
	printTable([]string{"ID", "SYMBOL", "NAME", "YAOS", "ELEMENT", "NATURE"}, rows)
}

func printHexagramEntry(h application.HexagramEntry) {
	printKV([][2]string{
		{"hexagram", fmt.Sprintf("%d %s %s", h.ID, h.Symbol, h.Name)},
		{"yaos", formatYaos(h.Yaos)},
		{"judgment", h.Judgment},
		{"image", h.Image},
		{"keywords", strings.Join(h.Keywords, ", ")},
	})
	for _, line := range h.Commentary {
		fmt.Printf("  %s  %s\n", line.Label, line.Text)
	}
}

func printInsightHistory(items []domain.InsightRecord) {
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		rows = append(rows, []string{formatTime(r.Timestamp), string(r.Category), r.Question, strconv.FormatBool(r.IsDeep)})
	}
	printTable([]string{"TIME", "CATEGORY", "QUESTION", "DEEP"}, rows)
}

func printArchives(items []domain.ArchiveEntry) {
	rows := make([][]string, 0, len(items))
	for _, e := range items {
		rows = append(rows, []string{formatTime(e.Timestamp), e.Kind, e.Title})
	}
	printTable([]string{"TIME", "TYPE", "TITLE"}, rows)
}

func printGuardianStatus(s domain.GuardianStatus) {
	rows := [][2]string{
		{"last_check_in", formatMaybeTime(s.LastCheckIn)},
		{"checked_in_today", strconv.FormatBool(s.CheckedInToday)},
		{"deadline", formatMaybeTime(s.Deadline)},
		{"remaining", s.Remaining.Round(time.Minute).String()},
	}
	if s.Capsule != nil {
		rows = append(rows, [2]string{"capsule", s.Capsule.Message})
	}
	printKV(rows)
}

func printToday(t application.Today) {
	printKV([][2]string{
		{"date", t.Date},
		{"solar_term", fmt.Sprintf("%s %s", t.SolarTerm.Name, t.SolarTerm.Meaning)},
		{"daily_hexagram", fmt.Sprintf("%d %s %s", t.Daily.ID, t.Daily.Name, t.Daily.Nature)},
		{"recommend", t.Advice.Recommend},
		{"avoid", t.Advice.Avoid},
		{"base_hexagram", fmt.Sprintf("%d %s", t.Base.ID, t.Base.Name)},
		{"elements", formatElements(t.Elements)},
		{"current_energy", formatElements(t.CurrentEnergy)},
	})
}

func printForecast(days []destiny.DailyEnergy) {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{d.Date, d.DayName, strconv.Itoa(d.EnergyLevel), string(d.DominantElement), d.Recommendation, d.Avoid})
	}
	printTable([]string{"DATE", "DAY", "ENERGY", "ELEMENT", "RECOMMEND", "AVOID"}, rows)
}
