// Package game holds the experience, level and title rules.
package game

import "sort"

// Title is a cosmetic rank unlocked at Level.
type Title struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
}

// Rules describes the XP economy. Titles must be sorted by Level ascending.
type Rules struct {
	XPCorrect  int
	XPWrong    int
	XPPerLevel int
	Titles     []Title
}

// DefaultTitles unlock every five levels, with a final tier at 50.
var DefaultTitles = []Title{
	{0, "🌱 回收見習生"},
	{5, "🌿 綠色守護者"},
	{10, "🛡️ 地球防衛隊"},
	{15, "🔥 環保熱血戰士"},
	{20, "🌊 海洋淨化使者"},
	{25, "⛰️ 山林守護神"},
	{30, "🌍 行星指揮官"},
	{35, "🌟 銀河回收大師"},
	{40, "👑 宇宙環保霸主"},
	{50, "💎 傳說中的清潔神"},
}

func DefaultRules() Rules {
	return Rules{XPCorrect: 50, XPWrong: 10, XPPerLevel: 50, Titles: DefaultTitles}
}

// NewRules builds rules from configured values, falling back to defaults for non-positive inputs.
func NewRules(xpCorrect, xpWrong, xpPerLevel int) Rules {
	r := DefaultRules()
	if xpCorrect > 0 {
		r.XPCorrect = xpCorrect
	}
	if xpWrong >= 0 {
		r.XPWrong = xpWrong
	}
	if xpPerLevel > 0 {
		r.XPPerLevel = xpPerLevel
	}
	return r
}

func (r Rules) perLevel() int {
	if r.XPPerLevel <= 0 {
		return 1
	}
	return r.XPPerLevel
}

// AddXP is plain addition; totals have no cap.
func AddXP(total, delta int) int {
	return total + delta
}

// Level is floor(total / XPPerLevel).
func (r Rules) Level(total int) int {
	if total <= 0 {
		return 0
	}
	return total / r.perLevel()
}

// Title returns the name at the highest threshold not above level.
// Levels below every threshold get the first entry.
func (r Rules) Title(level int) string {
	if len(r.Titles) == 0 {
		return ""
	}
	i := sort.Search(len(r.Titles), func(i int) bool { return r.Titles[i].Level > level })
	if i == 0 {
		return r.Titles[0].Name
	}
	return r.Titles[i-1].Name
}

// Progress is the XP position inside the current level.
type Progress struct {
	Current   int `json:"current"`
	Remaining int `json:"remaining"`
	PerLevel  int `json:"per_level"`
}

func (r Rules) Progress(total int) Progress {
	k := r.perLevel()
	cur := total % k
	if cur < 0 {
		cur = 0
	}
	return Progress{Current: cur, Remaining: k - cur, PerLevel: k}
}

// Award is the XP granted for one answer.
func (r Rules) Award(correct bool) int {
	if correct {
		return r.XPCorrect
	}
	return r.XPWrong
}

// Outcome summarises the effect of one award.
type Outcome struct {
	Gained        int    `json:"gained"`
	OldXP         int    `json:"old_xp"`
	NewXP         int    `json:"new_xp"`
	OldLevel      int    `json:"old_level"`
	NewLevel      int    `json:"new_level"`
	LeveledUp     bool   `json:"leveled_up"`
	Title         string `json:"title"`
	UnlockedTitle string `json:"unlocked_title,omitempty"`
}

// Outcome derives level and title changes from the total after adding delta.
func (r Rules) Outcome(newTotal, delta int) Outcome {
	oldTotal := newTotal - delta
	oldLevel, newLevel := r.Level(oldTotal), r.Level(newTotal)
	o := Outcome{
		Gained:    delta,
		OldXP:     oldTotal,
		NewXP:     newTotal,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		LeveledUp: newLevel > oldLevel,
		Title:     r.Title(newLevel),
	}
	if o.LeveledUp && o.Title != r.Title(oldLevel) {
		o.UnlockedTitle = o.Title
	}
	return o
}

// TitleStatus is a title row annotated for a given player level.
type TitleStatus struct {
	Title
	Unlocked bool `json:"unlocked"`
	Current  bool `json:"current"`
}

// Unlocks lists every title with its unlock state at level.
func (r Rules) Unlocks(level int) []TitleStatus {
	current := r.Title(level)
	out := make([]TitleStatus, 0, len(r.Titles))
	for _, t := range r.Titles {
		out = append(out, TitleStatus{
			Title:    t,
			Unlocked: t.Level <= level,
			Current:  t.Name == current,
		})
	}
	return out
}
