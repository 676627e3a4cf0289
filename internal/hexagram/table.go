// Package hexagram holds the read-only knowledge base of the 64 hexagrams.
package hexagram

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/herohuhu666/wanwu/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed hexagrams.yaml
var document []byte

type Hexagram struct {
	ID       int            `yaml:"id" json:"id"`
	Name     string         `yaml:"name" json:"name"`
	Symbol   string         `yaml:"symbol" json:"symbol"`
	Nature   string         `yaml:"nature" json:"nature"`
	Judgment string         `yaml:"judgment" json:"judgment"`
	Image    string         `yaml:"image" json:"image"`
	Element  domain.Element `yaml:"element" json:"element"`
	Keywords []string       `yaml:"keywords" json:"keywords"`
	Lines    string         `yaml:"lines" json:"lines"`
}

type Line struct {
	Label string `json:"label"`
	Yang  bool   `json:"yang"`
	Text  string `json:"text"`
}

var (
	positionNames = [6]string{"初", "二", "三", "四", "五", "上"}
	positionTexts = [6]string{"潜藏之始", "得中之位", "进退之间", "近君多惧", "尊位中正", "事之终极"}
)

// LineCommentary describes each line bottom-to-top using the traditional labels.
func (h Hexagram) LineCommentary() []Line {
	out := make([]Line, 0, len(h.Lines))
	for i, c := range h.Lines {
		if i >= len(positionNames) {
			break
		}
		yang := c == '1'
		num := "六"
		tone := "宜守柔顺"
		if yang {
			num = "九"
			tone = "宜刚健有为"
		}
		// 初九, 九二 ... 上九: first and top lines put the position first.
		label := num + positionNames[i]
		if i == 0 || i == 5 {
			label = positionNames[i] + num
		}
		out = append(out, Line{Label: label, Yang: yang, Text: positionTexts[i] + "，" + tone})
	}
	return out
}

// Yaos returns the lines as bits, bottom-to-top.
func (h Hexagram) Yaos() []domain.Yao {
	out := make([]domain.Yao, 0, len(h.Lines))
	for _, c := range h.Lines {
		if c == '1' {
			out = append(out, domain.Yang)
		} else {
			out = append(out, domain.Yin)
		}
	}
	return out
}

func (h Hexagram) Ref() domain.HexagramRef {
	return domain.HexagramRef{ID: h.ID, Name: h.Name, Nature: h.Image}
}

func (h Hexagram) Advice() string {
	return h.Image
}

func (h Hexagram) Action() string {
	if len(h.Keywords) == 0 {
		return "静坐一刻，观照本心"
	}
	return "以「" + h.Keywords[0] + "」为今日功课"
}

type Table struct {
	byID    map[int]Hexagram
	byLines map[string]Hexagram
	ordered []Hexagram
}

func NewTable(entries []Hexagram) (*Table, error) {
	t := &Table{
		byID:    make(map[int]Hexagram, len(entries)),
		byLines: make(map[string]Hexagram, len(entries)),
		ordered: make([]Hexagram, 0, len(entries)),
	}
	for _, h := range entries {
		if h.ID < 1 || h.ID > 64 {
			return nil, fmt.Errorf("hexagram %d: id out of range", h.ID)
		}
		if len(h.Lines) != 6 || strings.Trim(h.Lines, "01") != "" {
			return nil, fmt.Errorf("hexagram %d: lines must be six binary digits, got %q", h.ID, h.Lines)
		}
		if _, ok := t.byID[h.ID]; ok {
			return nil, fmt.Errorf("hexagram %d: duplicate id", h.ID)
		}
		if prev, ok := t.byLines[h.Lines]; ok {
			return nil, fmt.Errorf("hexagram %d: lines %s already used by %d", h.ID, h.Lines, prev.ID)
		}
		t.byID[h.ID] = h
		t.byLines[h.Lines] = h
		t.ordered = append(t.ordered, h)
	}
	return t, nil
}

func Parse(data []byte) (*Table, error) {
	var doc struct {
		Hexagrams []Hexagram `yaml:"hexagrams"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse hexagram table: %w", err)
	}
	return NewTable(doc.Hexagrams)
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded King Wen table.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(document)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

func (t *Table) ByID(id int) (Hexagram, bool) {
	h, ok := t.byID[id]
	return h, ok
}

func (t *Table) ByLines(key string) (Hexagram, bool) {
	h, ok := t.byLines[key]
	return h, ok
}

func (t *Table) All() []Hexagram {
	out := make([]Hexagram, len(t.ordered))
	copy(out, t.ordered)
	return out
}

func (t *Table) Len() int {
	return len(t.ordered)
}

// LinesKey joins yaos bottom-to-top into a lookup key such as "101100".
func LinesKey(yaos []domain.Yao) string {
	var b strings.Builder
	b.Grow(len(yaos))
	for _, y := range yaos {
		if y == domain.Yang {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
