package game

import "testing"

func TestLevel(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		xp   int
		want int
	}{
		{0, 0},
		{49, 0},
		{50, 1},
		{99, 1},
		{100, 2},
		{2500, 50},
	}
	for _, tt := range tests {
		if got := r.Level(tt.xp); got != tt.want {
			t.Errorf("Level(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestTitle(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		name  string
		level int
		want  string
	}{
		{"start", 0, "🌱 回收見習生"},
		{"just below first unlock", 4, "🌱 回收見習生"},
		{"exact threshold", 5, "🌿 綠色守護者"},
		{"between thresholds", 12, "🛡️ 地球防衛隊"},
		{"gap before top tier", 47, "👑 宇宙環保霸主"},
		{"top tier", 50, "💎 傳說中的清潔神"},
		{"beyond table", 120, "💎 傳說中的清潔神"},
		{"negative level", -1, "🌱 回收見習生"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Title(tt.level); got != tt.want {
				t.Errorf("Title(%d) = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestTitle_SparseTableWithoutZero(t *testing.T) {
	r := Rules{XPPerLevel: 10, Titles: []Title{{3, "bronze"}, {7, "silver"}}}
	if got := r.Title(1); got != "bronze" {
		t.Errorf("Title(1) = %q, want fallback to first entry", got)
	}
	if got := r.Title(8); got != "silver" {
		t.Errorf("Title(8) = %q, want silver", got)
	}
	if got := (Rules{}).Title(3); got != "" {
		t.Errorf("empty table Title() = %q, want empty", got)
	}
}

func TestProgress(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		xp            int
		cur, remained int
	}{
		{0, 0, 50},
		{10, 10, 40},
		{50, 0, 50},
		{120, 20, 30},
	}
	for _, tt := range tests {
		p := r.Progress(tt.xp)
		if p.Current != tt.cur || p.Remaining != tt.remained || p.PerLevel != 50 {
			t.Errorf("Progress(%d) = %+v, want current %d remaining %d", tt.xp, p, tt.cur, tt.remained)
		}
	}
}

func TestAward(t *testing.T) {
	r := DefaultRules()
	if got := r.Award(true); got != 50 {
		t.Errorf("Award(true) = %d, want 50", got)
	}
	if got := r.Award(false); got != 10 {
		t.Errorf("Award(false) = %d, want 10", got)
	}
	if got := AddXP(40, r.Award(false)); got != 50 {
		t.Errorf("AddXP(40, 10) = %d, want 50", got)
	}
}

func TestOutcome(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		name         string
		newTotal     int
		delta        int
		wantLevel    int
		wantLeveled  bool
		wantUnlocked string
	}{
		{"no level change", 30, 10, 0, false, ""},
		{"wrong answer crosses level", 50, 10, 1, true, ""},
		{"correct answer unlocks title", 250, 50, 5, true, "🌿 綠色守護者"},
		{"level up inside title band", 300, 50, 6, true, ""},
		{"reaches top tier", 2500, 50, 50, true, "💎 傳說中的清潔神"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := r.Outcome(tt.newTotal, tt.delta)
			if o.NewLevel != tt.wantLevel {
				t.Errorf("NewLevel = %d, want %d", o.NewLevel, tt.wantLevel)
			}
			if o.LeveledUp != tt.wantLeveled {
				t.Errorf("LeveledUp = %v, want %v", o.LeveledUp, tt.wantLeveled)
			}
			if o.UnlockedTitle != tt.wantUnlocked {
				t.Errorf("UnlockedTitle = %q, want %q", o.UnlockedTitle, tt.wantUnlocked)
			}
			if o.OldXP != tt.newTotal-tt.delta || o.Gained != tt.delta {
				t.Errorf("Outcome() = %+v, inconsistent totals", o)
			}
		})
	}
}

func TestUnlocks(t *testing.T) {
	r := DefaultRules()
	list := r.Unlocks(12)
	if len(list) != len(DefaultTitles) {
		t.Fatalf("Unlocks() len = %d, want %d", len(list), len(DefaultTitles))
	}
	var unlocked, current int
	for _, s := range list {
		if s.Unlocked {
			unlocked++
		}
		if s.Current {
			current++
			if s.Level != 10 {
				t.Errorf("current title level = %d, want 10", s.Level)
			}
		}
	}
	if unlocked != 3 || current != 1 {
		t.Errorf("unlocked = %d current = %d, want 3 and 1", unlocked, current)
	}
}

func TestNewRules(t *testing.T) {
	r := NewRules(0, -1, 0)
	if r.XPCorrect != 50 || r.XPWrong != 10 || r.XPPerLevel != 50 {
		t.Errorf("NewRules() with invalid input = %+v, want defaults", r)
	}
	r = NewRules(100, 0, 200)
	if r.XPCorrect != 100 || r.XPWrong != 0 || r.XPPerLevel != 200 {
		t.Errorf("NewRules() = %+v", r)
	}
}
