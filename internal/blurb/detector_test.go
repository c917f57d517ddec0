package blurb

import (
	"strings"
	"testing"

	"github.com/fortuna/hoopsdaily/internal/ledger"
	"github.com/fortuna/hoopsdaily/internal/store"
)

func statLine(id string, starter bool, minutes float64) store.PlayerStatLine {
	return store.PlayerStatLine{
		ID:       id,
		Name:     "Ty Reed",
		Team:     "OKC",
		Starter:  starter,
		Minutes:  minutes,
		Points:   18,
		Rebounds: 7,
		Assists:  4,
	}
}

// history feeds n identical games for id into l.
func history(l *ledger.Ledger, id string, n int, starter bool, minutes float64) {
	for i := 0; i < n; i++ {
		l.Update([]store.PlayerStatLine{statLine(id, starter, minutes)}, "2025-11-01")
	}
}

// play applies one game and returns what the detector says about it.
func play(l *ledger.Ledger, p store.PlayerStatLine) []Blurb {
	players := []store.PlayerStatLine{p}
	l.Update(players, "2025-12-01")
	return DetectAll(l, players)
}

// ---------------------------------------------------------------------------
// New starter
// ---------------------------------------------------------------------------

func TestDetect_FirstStartAfterFivePriorGames(t *testing.T) {
	l := ledger.New()
	history(l, "p1", 5, false, 12)

	got := play(l, statLine("p1", true, 28))
	if len(got) != 1 {
		t.Fatalf("got %d blurbs, want 1", len(got))
	}
	if got[0].Kind != KindFirstStart {
		t.Errorf("Kind = %s, want %s", got[0].Kind, KindFirstStart)
	}
	want := "Ty Reed (OKC) first start of the season: 28 min, 18 pts."
	if got[0].Text != want {
		t.Errorf("Text = %q, want %q", got[0].Text, want)
	}
}

func TestDetect_FirstStartNeedsFivePriorGames(t *testing.T) {
	l := ledger.New()
	history(l, "p1", 4, false, 12)

	if got := play(l, statLine("p1", true, 28)); len(got) != 0 {
		t.Errorf("got %v, want no blurb with 4 prior games", got)
	}
}

func TestDetect_NthStartThroughFifth(t *testing.T) {
	l := ledger.New()
	history(l, "p1", 5, false, 20)
	play(l, statLine("p1", true, 20))

	for n := 2; n <= MaxNotableStarts; n++ {
		got := play(l, statLine("p1", true, 20))
		if len(got) != 1 || got[0].Kind != KindNthStart {
			t.Fatalf("start %d: got %v, want one %s", n, got, KindNthStart)
		}
		prefix := "Ty Reed (OKC) " + Ordinal(n) + " start this season"
		if !strings.HasPrefix(got[0].Text, prefix) {
			t.Errorf("start %d: Text = %q, want prefix %q", n, got[0].Text, prefix)
		}
	}

	if got := play(l, statLine("p1", true, 20)); len(got) != 0 {
		t.Errorf("sixth start: got %v, want no blurb", got)
	}
}

func TestDetect_SeasonOpenerStarterIsQuiet(t *testing.T) {
	l := ledger.New()
	if got := play(l, statLine("p1", true, 36)); len(got) != 0 {
		t.Errorf("got %v, want no blurb for first game of season", got)
	}
}

// ---------------------------------------------------------------------------
// Minutes surge
// ---------------------------------------------------------------------------

func TestDetect_MinutesSurgeThreshold(t *testing.T) {
	cases := []struct {
		name    string
		prior   int
		avg     float64
		minutes float64
		want    bool
	}{
		{"exact ratio and delta", 10, 20, 30, true},
		{"just under ratio", 10, 20, 29, false},
		{"too few prior games", 9, 20, 30, false},
		{"tiny baseline", 10, 2, 4, false},
		{"ratio met but delta short", 12, 8, 17, false},
		{"large jump", 15, 15, 35, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := ledger.New()
			history(l, "p1", tc.prior, false, tc.avg)

			got := play(l, statLine("p1", false, tc.minutes))
			fired := len(got) == 1 && got[0].Kind == KindMinutes
			if fired != tc.want {
				t.Errorf("fired = %v, want %v (blurbs %v)", fired, tc.want, got)
			}
		})
	}
}

func TestDetect_MinutesSurgeText(t *testing.T) {
	l := ledger.New()
	history(l, "p1", 11, false, 15)

	got := Detect(l, nil)
	if len(got) != 0 {
		t.Fatalf("Detect with no players = %v", got)
	}

	p := statLine("p1", false, 35)
	l.Update([]store.PlayerStatLine{p}, "2025-12-01")
	texts := Detect(l, []store.PlayerStatLine{p})
	if len(texts) != 1 {
		t.Fatalf("got %d blurbs, want 1", len(texts))
	}
	if !strings.Contains(texts[0], "35 min (season avg: 15)") {
		t.Errorf("Text = %q, want it to contain %q", texts[0], "35 min (season avg: 15)")
	}
	want := "Ty Reed (OKC) played 35 min (season avg: 15): 18 pts, 7 reb, 4 ast."
	if texts[0] != want {
		t.Errorf("Text = %q, want %q", texts[0], want)
	}
}

func TestDetect_MinutesSurgeRoundsForDisplayOnly(t *testing.T) {
	l := ledger.New()
	// 20 prior games averaging 15.45 min.
	history(l, "p1", 10, false, 15.0)
	history(l, "p1", 10, false, 15.9)

	p := statLine("p1", false, 32.6) // a "32:36" box-score line
	l.Update([]store.PlayerStatLine{p}, "2025-12-01")
	texts := Detect(l, []store.PlayerStatLine{p})
	if len(texts) != 1 {
		t.Fatalf("got %d blurbs, want 1", len(texts))
	}
	if !strings.Contains(texts[0], "played 33 min (season avg: 15)") {
		t.Errorf("Text = %q, want rounded 33 min and avg 15", texts[0])
	}

	e, _ := l.Get("p1")
	if diff := e.TotalMinutes - (150 + 159 + 32.6); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalMinutes = %v, want fractional minutes kept", e.TotalMinutes)
	}
}

func TestDetect_MinutesSurgeHalfMinute(t *testing.T) {
	l := ledger.New()
	history(l, "p1", 11, false, 14.5)

	p := statLine("p1", false, 32.5) // "32:30"
	l.Update([]store.PlayerStatLine{p}, "2025-12-01")
	texts := Detect(l, []store.PlayerStatLine{p})
	if len(texts) != 1 || !strings.Contains(texts[0], "played 32 min (season avg: 14)") {
		t.Errorf("Detect = %v, want halves rounded to even", texts)
	}
}

func TestRoundMinutes(t *testing.T) {
	cases := map[float64]int{
		0:     0,
		0.5:   0,
		14.5:  14,
		15.45: 15,
		15.5:  16,
		32.5:  32,
		32.6:  33,
		33.5:  34,
		34.49: 34,
	}
	for in, want := range cases {
		if got := roundMinutes(in); got != want {
			t.Errorf("roundMinutes(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestDetect_StartTakesPrecedenceOverSurge(t *testing.T) {
	l := ledger.New()
	history(l, "p1", 10, false, 10)

	got := play(l, statLine("p1", true, 34))
	if len(got) != 1 {
		t.Fatalf("got %d blurbs, want exactly 1", len(got))
	}
	if got[0].Kind != KindFirstStart {
		t.Errorf("Kind = %s, want %s", got[0].Kind, KindFirstStart)
	}
}

// ---------------------------------------------------------------------------
// Skips
// ---------------------------------------------------------------------------

func TestDetect_EmptyLedgerNoBlurbs(t *testing.T) {
	l := ledger.New()
	if got := Detect(l, []store.PlayerStatLine{statLine("p1", true, 40)}); len(got) != 0 {
		t.Errorf("got %v, want none for player absent from ledger", got)
	}
}

func TestDetect_UntrackablePlayersSkipped(t *testing.T) {
	l := ledger.New()
	history(l, "p1", 12, false, 10)

	dnp := statLine("p1", false, 0)
	dnp.DidNotPlay = true
	anon := statLine("", true, 40)

	if got := Detect(l, []store.PlayerStatLine{dnp, anon}); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestDetect_PreservesInputOrder(t *testing.T) {
	l := ledger.New()
	history(l, "b", 11, false, 10)
	history(l, "a", 11, false, 10)

	players := []store.PlayerStatLine{statLine("b", false, 30), statLine("a", false, 30)}
	l.Update(players, "2025-12-01")

	got := DetectAll(l, players)
	if len(got) != 2 || got[0].PlayerID != "b" || got[1].PlayerID != "a" {
		t.Errorf("got %v, want b then a", got)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestPriorOf(t *testing.T) {
	e := ledger.Entry{Games: 11, TotalMinutes: 200}
	p := PriorOf(e, store.PlayerStatLine{Minutes: 30})
	if p.Games != 10 || p.TotalMinutes != 170 {
		t.Errorf("got %+v, want {10 170}", p)
	}
	if _, ok := (Prior{}).AvgMinutes(); ok {
		t.Error("AvgMinutes defined with zero games")
	}
}

func TestOrdinal(t *testing.T) {
	cases := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 101: "101st", 111: "111th",
	}
	for n, want := range cases {
		if got := Ordinal(n); got != want {
			t.Errorf("Ordinal(%d) = %q, want %q", n, got, want)
		}
	}
}
