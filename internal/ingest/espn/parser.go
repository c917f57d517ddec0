package espn

import (
	"encoding/json"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/fortuna/hoopsdaily/internal/store"
)

// ESPN box score stat labels. Lines are resolved by label, not position, so
// column reordering upstream does not shift values.
const (
	statLabelMinutes = "MIN"
	statLabelPoints  = "PTS"
	statLabelReb     = "REB"
	statLabelAst     = "AST"
	statLabelStl     = "STL"
	statLabelBlk     = "BLK"
)

// statNameLabels maps the long-form "names" array onto the short labels.
var statNameLabels = map[string]string{
	"minutes":  statLabelMinutes,
	"points":   statLabelPoints,
	"rebounds": statLabelReb,
	"assists":  statLabelAst,
	"steals":   statLabelStl,
	"blocks":   statLabelBlk,
}

// ParseScoreboard extracts the games listed on a scoreboard response. An empty
// slate is normal and yields an empty slice.
func ParseScoreboard(scoreboardData map[string]interface{}) []GameMeta {
	events := extractArray(scoreboardData, "events")

	games := make([]GameMeta, 0, len(events))
	for _, eventInterface := range events {
		event, ok := eventInterface.(map[string]interface{})
		if !ok {
			continue
		}
		meta, ok := parseEvent(event)
		if !ok {
			log.Printf("[parser] Warning: Skipping event %s: no competitors", extractString(event, "id"))
			continue
		}
		games = append(games, meta)
	}
	return games
}

func parseEvent(event map[string]interface{}) (GameMeta, bool) {
	statusType := extractMap(extractMap(event, "status"), "type")
	completed, _ := statusType["completed"].(bool)
	if state := extractString(statusType, "state"); state == "post" {
		completed = true
	}

	meta := GameMeta{
		EventID:   extractString(event, "id"),
		Status:    extractString(statusType, "description"),
		Completed: completed,
	}

	competitions := extractArray(event, "competitions")
	if len(competitions) == 0 {
		return meta, false
	}
	comp, ok := competitions[0].(map[string]interface{})
	if !ok {
		return meta, false
	}

	competitors := extractArray(comp, "competitors")
	if len(competitors) == 0 {
		return meta, false
	}
	for _, compInterface := range competitors {
		competitor, ok := compInterface.(map[string]interface{})
		if !ok {
			continue
		}
		team := extractMap(competitor, "team")
		side := TeamMeta{
			Name:    extractString(team, "displayName"),
			Tricode: normalizeTeamAbbreviation(extractString(team, "abbreviation")),
			Score:   extractInt(competitor, "score"),
		}
		switch extractString(competitor, "homeAway") {
		case "home":
			meta.Home = side
		case "away":
			meta.Away = side
		}
	}
	return meta, true
}

// ParseBoxScore splits a summary's box score into home and away player lines.
// Sides are taken from team.homeAway when present, then by tricode against
// meta, then by ESPN's ordering (first team away, second home).
func ParseBoxScore(summaryData map[string]interface{}, meta GameMeta) (home, away []store.PlayerStatLine) {
	home, away = []store.PlayerStatLine{}, []store.PlayerStatLine{}

	playersData := extractArray(extractMap(summaryData, "boxscore"), "players")

	for i, teamDataInterface := range playersData {
		teamData, ok := teamDataInterface.(map[string]interface{})
		if !ok {
			continue
		}
		team := extractMap(teamData, "team")
		tricode := normalizeTeamAbbreviation(extractString(team, "abbreviation"))

		var isHome bool
		switch fallbackString(extractString(teamData, "homeAway"), extractString(team, "homeAway")) {
		case "home":
			isHome = true
		case "away":
		default:
			switch {
			case tricode != "" && tricode == meta.Home.Tricode:
				isHome = true
			case tricode != "" && tricode == meta.Away.Tricode:
			default:
				isHome = i > 0
			}
		}

		if tricode == "" {
			if isHome {
				tricode = meta.Home.Tricode
			} else {
				tricode = meta.Away.Tricode
			}
		}

		for _, statGroupInterface := range extractArray(teamData, "statistics") {
			statGroup, ok := statGroupInterface.(map[string]interface{})
			if !ok {
				continue
			}
			statIndexMap := buildStatIndex(statGroup)
			for _, athleteInterface := range extractArray(statGroup, "athletes") {
				athleteData, ok := athleteInterface.(map[string]interface{})
				if !ok {
					continue
				}
				line := parsePlayerLine(athleteData, tricode, statIndexMap)
				if isHome {
					home = append(home, line)
				} else {
					away = append(away, line)
				}
			}
		}
	}
	return home, away
}

// buildStatIndex resolves label -> column from "names", falling back to
// "labels" for anything names did not cover.
func buildStatIndex(statGroup map[string]interface{}) map[string]int {
	statIndexMap := make(map[string]int)
	for i, nameInterface := range extractArray(statGroup, "names") {
		if name, ok := nameInterface.(string); ok {
			if label, ok := statNameLabels[name]; ok {
				statIndexMap[label] = i
			}
		}
	}
	for i, labelInterface := range extractArray(statGroup, "labels") {
		if label, ok := labelInterface.(string); ok {
			label = strings.ToUpper(label)
			if _, ok := statIndexMap[label]; !ok {
				statIndexMap[label] = i
			}
		}
	}
	return statIndexMap
}

func parsePlayerLine(athleteData map[string]interface{}, tricode string, statIndexMap map[string]int) store.PlayerStatLine {
	athlete := extractMap(athleteData, "athlete")
	stats := extractArray(athleteData, "stats")

	getStat := func(label string) interface{} {
		if idx, ok := statIndexMap[label]; ok && idx < len(stats) {
			return stats[idx]
		}
		return nil
	}

	line := store.PlayerStatLine{
		ID:       strings.TrimSpace(extractString(athlete, "id")),
		Name:     fallbackString(extractString(athlete, "displayName"), extractString(athlete, "shortName")),
		Team:     tricode,
		Position: extractString(extractMap(athlete, "position"), "abbreviation"),
		Points:   ParseInt(getStat(statLabelPoints)),
		Rebounds: ParseInt(getStat(statLabelReb)),
		Assists:  ParseInt(getStat(statLabelAst)),
		Steals:   ParseInt(getStat(statLabelStl)),
		Blocks:   ParseInt(getStat(statLabelBlk)),
	}
	if minStat := getStat(statLabelMinutes); minStat != nil {
		line.Minutes = ParseMinutes(stringify(minStat))
	}
	if starter, ok := athleteData["starter"].(bool); ok {
		line.Starter = starter
	}

	didNotPlay, _ := athleteData["didNotPlay"].(bool)
	line.DidNotPlay = didNotPlay || line.Minutes == 0

	return line
}

// Helper functions

func extractString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

func fallbackString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func extractInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		return ParseInt(v)
	}
	return 0
}

func extractMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key]; ok {
		if mapVal, ok := v.(map[string]interface{}); ok {
			return mapVal
		}
	}
	return map[string]interface{}{}
}

func extractArray(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key]; ok {
		if arrVal, ok := v.([]interface{}); ok {
			return arrVal
		}
	}
	return []interface{}{}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// ParseInt coerces a provider stat value to an int. It never fails:
// anything unparseable ("--", "", nil, NaN) or negative is zero.
func ParseInt(v interface{}) int {
	if n := parseInt(v); n > 0 {
		return n
	}
	return 0
}

func parseInt(v interface{}) int {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0
		}
		return int(val)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		return i
	case int:
		return val
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	default:
		return 0
	}
}

// ParseMinutes turns "MM:SS", "MM" or "MM.m" into fractional minutes. Like
// ParseInt it is total: malformed or negative input is zero.
func ParseMinutes(minutesStr string) float64 {
	minutesStr = strings.TrimSpace(minutesStr)
	if minutesStr == "" || minutesStr == "0" {
		return 0.0
	}

	if strings.Contains(minutesStr, ":") {
		parts := strings.Split(minutesStr, ":")
		if len(parts) != 2 {
			return 0
		}
		mins, err := strconv.Atoi(parts[0])
		if err != nil || mins < 0 {
			return 0
		}
		secs, err := strconv.Atoi(parts[1])
		if err != nil || secs < 0 || secs >= 60 {
			return 0
		}
		return float64(mins) + (float64(secs) / 60.0)
	}

	f, err := strconv.ParseFloat(minutesStr, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// normalizeTeamAbbreviation handles ESPN's inconsistent abbreviations
func normalizeTeamAbbreviation(abbr string) string {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))

	abbreviationMap := map[string]string{
		"GS":   "GSW",
		"SA":   "SAS",
		"NO":   "NOP",
		"NY":   "NYK",
		"UTAH": "UTA",
		"WSH":  "WAS",
	}

	if normalized, ok := abbreviationMap[abbr]; ok {
		return normalized
	}
	return abbr
}
