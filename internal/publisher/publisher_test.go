package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fortuna/hoopsdaily/internal/store"
)

func sampleDay() *store.DayDocument {
	return &store.DayDocument{
		Date: "2025-11-01",
		Games: []store.GameResult{
			{
				GameID: "g1",
				Home:   store.TeamResult{Tricode: "OKC"},
				Away:   store.TeamResult{Tricode: "DEN"},
				Blurbs: []string{"Player p1 (OKC) first start of the season: 30 min, 12 pts."},
			},
			{GameID: "g2", Home: store.TeamResult{Tricode: "LAL"}, Away: store.TeamResult{Tricode: "BOS"}, Blurbs: []string{}},
		},
	}
}

func TestEventsFromDay(t *testing.T) {
	events := EventsFromDay("run-1", sampleDay())
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (games without blurbs skipped)", len(events))
	}
	ev := events[0]
	if ev.RunID != "run-1" || ev.Date != "2025-11-01" || ev.GameID != "g1" || ev.Matchup != "DEN @ OKC" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Published.IsZero() {
		t.Error("Published not set")
	}
}

func TestRedisStreamPublisher_XAdd(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub := NewRedisStreamPublisher(client)
	ctx := context.Background()
	ev := EventsFromDay("run-1", sampleDay())[0]
	if err := pub.PublishBlurbs(ctx, ev); err != nil {
		t.Fatalf("PublishBlurbs: %v", err)
	}

	msgs, err := client.XRange(ctx, BlurbStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("stream has %d messages, want 1", len(msgs))
	}
	if msgs[0].Values["game_id"] != "g1" {
		t.Errorf("game_id = %v, want g1", msgs[0].Values["game_id"])
	}

	var decoded BlurbEvent
	if err := json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &decoded); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if decoded.Matchup != "DEN @ OKC" || len(decoded.Blurbs) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

type recordingPublisher struct {
	events []BlurbEvent
	err    error
}

func (r *recordingPublisher) PublishBlurbs(ctx context.Context, event BlurbEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("down")}
	ok := &recordingPublisher{}
	f := Fanout{failing, nil, ok}

	err := f.PublishBlurbs(context.Background(), BlurbEvent{GameID: "g1"})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.events) != 1 || len(failing.events) != 1 {
		t.Errorf("deliveries: failing=%d ok=%d, want 1/1", len(failing.events), len(ok.events))
	}
}

func TestFanout_Empty(t *testing.T) {
	if err := (Fanout{}).PublishBlurbs(context.Background(), BlurbEvent{}); err != nil {
		t.Errorf("empty fanout error: %v", err)
	}
}
