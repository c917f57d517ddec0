package store

// PlayerStatLine is one player's line in one game, normalised from the
// provider box score.
type PlayerStatLine struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Team       string  `json:"team"`
	Position   string  `json:"position,omitempty"`
	Starter    bool    `json:"starter"`
	DidNotPlay bool    `json:"dnp"`
	Minutes    float64 `json:"min"`
	Points     int     `json:"pts"`
	Rebounds   int     `json:"reb"`
	Assists    int     `json:"ast"`
	Steals     int     `json:"stl"`
	Blocks     int     `json:"blk"`
}

// Trackable reports whether the line can feed the player ledger.
func (p PlayerStatLine) Trackable() bool {
	return p.ID != "" && !p.DidNotPlay
}

// TeamResult is one side of a game as written to the day document.
type TeamResult struct {
	Name    string           `json:"name"`
	Tricode string           `json:"tricode"`
	Score   int              `json:"score"`
	Players []PlayerStatLine `json:"players"`
}

// Starters returns the players flagged as starters, in provider order.
func (t TeamResult) Starters() []PlayerStatLine {
	var starters []PlayerStatLine
	for _, p := range t.Players {
		if p.Starter {
			starters = append(starters, p)
		}
	}
	return starters
}

// GameResult is a single game entry in a day document.
type GameResult struct {
	GameID    string     `json:"game_id"`
	Status    string     `json:"status"`
	Completed bool       `json:"completed"`
	Home      TeamResult `json:"home"`
	Away      TeamResult `json:"away"`
	Summary   string     `json:"summary"`
	Blurbs    []string   `json:"blurbs"`
}

// Matchup renders "AWY @ HOM".
func (g GameResult) Matchup() string {
	return g.Away.Tricode + " @ " + g.Home.Tricode
}

// DayDocument is the dated JSON document written once per processed date.
type DayDocument struct {
	Date  string       `json:"date"`
	Games []GameResult `json:"games"`
}

// Blurbs flattens every game's blurbs in game order.
func (d *DayDocument) Blurbs() []string {
	var all []string
	for _, g := range d.Games {
		all = append(all, g.Blurbs...)
	}
	return all
}

// Index lists every date with a document, newest first.
type Index struct {
	Dates []string `json:"dates"`
}
