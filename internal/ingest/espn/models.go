package espn

// TeamMeta is one competitor as listed on the scoreboard.
type TeamMeta struct {
	Name    string
	Tricode string
	Score   int
}

// GameMeta is the scoreboard view of one event, enough to fetch and label its
// box score.
type GameMeta struct {
	EventID   string
	Status    string
	Completed bool
	Home      TeamMeta
	Away      TeamMeta
}
