package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dg "github.com/open-builders/reward-rush-bot/internal/domain/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/domain/user"
	"github.com/open-builders/reward-rush-bot/internal/platform/telegram"
)

type sent struct {
	chatID int64
	text   string
	kb     telegram.Keyboard
}

type fakeSender struct {
	mu     sync.Mutex
	msgs   []sent
	failOn map[int64]bool
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string, kb telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[chatID] {
		return errors.New("bot was blocked by the user")
	}
	f.msgs = append(f.msgs, sent{chatID: chatID, text: text, kb: kb})
	return nil
}

func (f *fakeSender) to(chatID int64) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, m := range f.msgs {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func TestCodeRedeemed_IsolatesFailures(t *testing.T) {
	tg := &fakeSender{failOn: map[int64]bool{100: true}}
	s := NewService(tg, 0, zerolog.Nop())

	s.CodeRedeemed(context.Background(), Redemption{
		User:      user.Ref{ID: 7, Username: "alice"},
		FirstName: "Alice <3",
		Code:      "KeyShareBD-AAAA-BBBB-CCCC",
		At:        time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC),
	}, []int64{100, 200, 300})

	assert.Empty(t, tg.to(100))
	require.Len(t, tg.to(200), 1)
	require.Len(t, tg.to(300), 1)

	text := tg.to(200)[0].text
	assert.Contains(t, text, "Alice &lt;3")
	assert.Contains(t, text, "@alice")
	assert.Contains(t, text, "2024-03-01 09:05:00")
	assert.Contains(t, text, "KeyShareBD-AAAA-BBBB-CCCC")
}

func TestGiveawayEnded_Audiences(t *testing.T) {
	tg := &fakeSender{}
	s := NewService(tg, 0, zerolog.Nop())

	g := &dg.Giveaway{
		Name:         "movie",
		Participants: []user.Ref{{ID: 1, Username: "a"}, {ID: 2}, {ID: 3}},
		Winners:      []dg.Winner{{User: user.Ref{ID: 1, Username: "a"}, Payload: "x@y:pw"}},
	}
	s.GiveawayEnded(context.Background(), g, []int64{99})

	winner := tg.to(1)
	require.Len(t, winner, 2)
	assert.Contains(t, winner[0].text, "You won the <b>Movie</b>")
	assert.Contains(t, winner[0].text, "x@y:pw")
	assert.Contains(t, winner[1].text, "Total Participants: 3")

	for _, id := range []int64{2, 3} {
		loser := tg.to(id)
		require.Len(t, loser, 1)
		assert.Contains(t, loser[0].text, "Better luck next time")
	}

	admin := tg.to(99)
	require.Len(t, admin, 1)
	assert.Contains(t, admin[0].text, "@a")
}

func TestGiveawayEnded_WinnerWithoutUsername(t *testing.T) {
	tg := &fakeSender{}
	s := NewService(tg, 0, zerolog.Nop())

	g := &dg.Giveaway{
		Name:         "movie",
		Participants: []user.Ref{{ID: 42}},
		Winners:      []dg.Winner{{User: user.Ref{ID: 42}, Payload: "p"}},
	}
	s.GiveawayEnded(context.Background(), g, []int64{99})

	admin := tg.to(99)
	require.Len(t, admin, 1)
	assert.Contains(t, admin[0].text, `<a href="tg://user?id=42">42</a>`)
}

func TestGiveawayEnded_NoWinners(t *testing.T) {
	tg := &fakeSender{}
	s := NewService(tg, 0, zerolog.Nop())

	s.GiveawayEnded(context.Background(), &dg.Giveaway{Name: "empty"}, []int64{5})
	require.Len(t, tg.to(5), 1)
	assert.True(t, strings.HasSuffix(tg.to(5)[0].text, "No winners"))
}

func TestGiveawayProgress(t *testing.T) {
	tg := &fakeSender{}
	s := NewService(tg, 0, zerolog.Nop())

	s.GiveawayProgress(context.Background(), &dg.Giveaway{
		Name:         "netflix_premium",
		Participants: []user.Ref{{ID: 1}, {ID: 2}},
	})

	msgs := tg.to(2)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].text, "Netflix Premium Update")
	assert.Contains(t, msgs[0].text, "Now 2 participants")
	require.Len(t, msgs[0].kb, 1)
	assert.Equal(t, "view_status", msgs[0].kb[0][0].Data)
}

func TestBroadcast_Tally(t *testing.T) {
	tg := &fakeSender{failOn: map[int64]bool{2: true}}
	s := NewService(tg, 0, zerolog.Nop())

	tally := s.Broadcast(context.Background(), "Hello <all>", []user.Ref{{ID: 1}, {ID: 2}, {ID: 3}})
	assert.Equal(t, Tally{Total: 3, Delivered: 2, Failed: 1}, tally)
	assert.Equal(t, "Hello &lt;all&gt;", tg.to(1)[0].text)
}

func TestBroadcast_EscapesQuotes(t *testing.T) {
	tg := &fakeSender{}
	s := NewService(tg, 0, zerolog.Nop())

	s.Broadcast(context.Background(), `Tom & "Jerry" <3 'em`, []user.Ref{{ID: 1}})
	assert.Equal(t, "Tom &amp; &#34;Jerry&#34; &lt;3 &#39;em", tg.to(1)[0].text)
}

func TestBroadcast_CancelledContextCountsAsFailed(t *testing.T) {
	tg := &fakeSender{}
	s := NewService(tg, 1, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tally := s.Broadcast(ctx, "hi", []user.Ref{{ID: 1}, {ID: 2}})
	assert.Equal(t, 2, tally.Failed)
}
