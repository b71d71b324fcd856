package game

import (
	"errors"
	"math/rand"
	"testing"
)

// rig puts a session mid-round with the given hands; next is drawn first,
// followed by the rest of a standard deck.
func rig(t *testing.T, player, dealer Hand, next ...Card) *Session {
	t.Helper()

	s := NewSession("0xPlayer", 0, Rules{Sampler: frontSampler{}})
	used := make(map[Card]bool)
	for _, c := range append(append(append(Hand{}, player...), dealer...), next...) {
		if used[c] {
			t.Fatalf("card %s used twice in rig", c)
		}
		used[c] = true
	}

	cards := append([]Card{}, next...)
	for _, c := range NewDeck().Cards {
		if !used[c] {
			cards = append(cards, c)
		}
	}

	s.Deck = &Deck{Cards: cards}
	s.PlayerHand = player
	s.DealerHand = dealer
	s.Status = InProgress
	s.RoundID = "round-1"
	return s
}

func c(r Rank, s Suit) Card {
	return Card{Suit: s, Rank: r}
}

func assertCardCount(t *testing.T, s *Session) {
	t.Helper()

	if got := s.CardsInPlay(); got != 52 {
		t.Fatalf("CardsInPlay() = %d, want 52", got)
	}
	seen := make(map[Card]bool)
	all := append(append(append([]Card{}, s.Deck.Cards...), s.PlayerHand...), s.DealerHand...)
	for _, card := range all {
		if seen[card] {
			t.Fatalf("card %s appears twice", card)
		}
		seen[card] = true
	}
}

func TestSessionStart(t *testing.T) {
	t.Parallel()

	t.Run("deals alternately and masks the hole card", func(t *testing.T) {
		t.Parallel()

		s := NewSession("0xPlayer", 300, Rules{Sampler: frontSampler{}})
		view, err := s.Start()
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		if view.Status != InProgress {
			t.Errorf("Status = %s, want %s", view.Status, InProgress)
		}
		if view.Score != 300 {
			t.Errorf("Score = %d, want 300", view.Score)
		}
		if view.Message != "" {
			t.Errorf("Message = %q, want empty", view.Message)
		}
		if view.RoundID == "" {
			t.Error("RoundID is empty")
		}

		wantPlayer := []Card{c(Ace, Spades), c(Three, Spades)}
		if len(view.PlayerHand) != 2 || view.PlayerHand[0] != wantPlayer[0] || view.PlayerHand[1] != wantPlayer[1] {
			t.Errorf("PlayerHand = %v, want %v", view.PlayerHand, wantPlayer)
		}
		if len(view.DealerHand) != 2 || view.DealerHand[0] != c(Two, Spades) || view.DealerHand[1] != MaskedCard {
			t.Errorf("DealerHand = %v, want [2♠ ??]", view.DealerHand)
		}
		if s.DealerHand[1] != c(Four, Spades) {
			t.Errorf("hole card = %s, want 4♠", s.DealerHand[1])
		}
		if view.DealerValue != 2 {
			t.Errorf("DealerValue = %d, want 2", view.DealerValue)
		}
		assertCardCount(t, s)
	})

	t.Run("restart after a finished round", func(t *testing.T) {
		t.Parallel()

		s := NewSession("0xPlayer", 0, Rules{Sampler: frontSampler{}})
		first, err := s.Start()
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if _, err := s.Stand(); err != nil {
			t.Fatalf("Stand() error = %v", err)
		}
		score := s.Score

		second, err := s.Start()
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if second.Status != InProgress || second.Score != score {
			t.Errorf("after restart Status = %s Score = %d, want %s %d", second.Status, second.Score, InProgress, score)
		}
		if second.RoundID == first.RoundID {
			t.Error("RoundID was not renewed")
		}
		if len(s.PlayerHand) != 2 || len(s.DealerHand) != 2 || s.Deck.RemainingCards() != 48 {
			t.Errorf("hands %d/%d deck %d after restart", len(s.PlayerHand), len(s.DealerHand), s.Deck.RemainingCards())
		}
	})

	t.Run("natural stays open by default", func(t *testing.T) {
		t.Parallel()

		// A♠ to player, 2♠ dealer, K♠ player, 3♠ dealer
		s := NewSession("0xPlayer", 0, Rules{Sampler: &scriptSampler{picks: []int{0, 0, 10, 0}}})
		view, err := s.Start()
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if view.PlayerValue != 21 {
			t.Fatalf("PlayerValue = %d, want 21", view.PlayerValue)
		}
		if view.Status != InProgress {
			t.Errorf("Status = %s, want %s", view.Status, InProgress)
		}
	})

	t.Run("natural settles when enabled", func(t *testing.T) {
		t.Parallel()

		s := NewSession("0xPlayer", 0, Rules{
			Sampler:         &scriptSampler{picks: []int{0, 0, 10, 0}},
			ResolveNaturals: true,
		})
		view, err := s.Start()
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if view.Status != PlayerBlackjack || view.Score != RoundStake {
			t.Errorf("Status = %s Score = %d, want %s %d", view.Status, view.Score, PlayerBlackjack, RoundStake)
		}
		if view.DealerHand[1].IsHidden() {
			t.Error("hole card still masked after the round ended")
		}
	})
}

func TestSessionHit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		player     Hand
		next       Card
		wantStatus Status
		wantScore  int
		wantMasked bool
	}{
		{
			name:       "bust on 22",
			player:     Hand{c(King, Hearts), c(Queen, Hearts)},
			next:       c(Two, Hearts),
			wantStatus: PlayerBust,
			wantScore:  -RoundStake,
		},
		{
			name:       "exactly 21",
			player:     Hand{c(King, Hearts), c(Five, Hearts)},
			next:       c(Six, Hearts),
			wantStatus: PlayerBlackjack,
			wantScore:  RoundStake,
		},
		{
			name:       "soft hand survives",
			player:     Hand{c(Ace, Hearts), c(Nine, Hearts)},
			next:       c(Five, Hearts),
			wantStatus: InProgress,
			wantScore:  0,
			wantMasked: true,
		},
		{
			name:       "two aces and nine",
			player:     Hand{c(Ace, Hearts), c(Ace, Diamonds)},
			next:       c(Nine, Hearts),
			wantStatus: PlayerBlackjack,
			wantScore:  RoundStake,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := rig(t, tt.player, Hand{c(Ten, Clubs), c(Seven, Clubs)}, tt.next)
			view, err := s.Hit()
			if err != nil {
				t.Fatalf("Hit() error = %v", err)
			}

			if view.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", view.Status, tt.wantStatus)
			}
			if view.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", view.Score, tt.wantScore)
			}
			if len(view.PlayerHand) != len(tt.player)+1 || view.PlayerHand[len(tt.player)] != tt.next {
				t.Errorf("PlayerHand = %v, want %v then %s", view.PlayerHand, tt.player, tt.next)
			}
			if masked := view.DealerHand[1] == MaskedCard; masked != tt.wantMasked {
				t.Errorf("hole card masked = %v, want %v", masked, tt.wantMasked)
			}
			if tt.wantMasked && view.Message != "" {
				t.Errorf("Message = %q, want empty while in progress", view.Message)
			}
			assertCardCount(t, s)
		})
	}
}

func TestSessionIllegalActions(t *testing.T) {
	t.Parallel()

	t.Run("idle session", func(t *testing.T) {
		t.Parallel()

		s := NewSession("0xPlayer", 0, Rules{})
		if _, err := s.Hit(); !errors.Is(err, ErrIllegalAction) {
			t.Errorf("Hit() error = %v, want ErrIllegalAction", err)
		}
		if _, err := s.Stand(); !errors.Is(err, ErrIllegalAction) {
			t.Errorf("Stand() error = %v, want ErrIllegalAction", err)
		}
	})

	t.Run("finished round is left untouched", func(t *testing.T) {
		t.Parallel()

		s := rig(t, Hand{c(King, Hearts), c(Queen, Hearts)}, Hand{c(Ten, Clubs), c(Seven, Clubs)}, c(Two, Hearts))
		if _, err := s.Hit(); err != nil {
			t.Fatalf("Hit() error = %v", err)
		}
		before := s.View()
		remaining := s.Deck.RemainingCards()

		if _, err := s.Hit(); !errors.Is(err, ErrIllegalAction) {
			t.Errorf("Hit() error = %v, want ErrIllegalAction", err)
		}
		if _, err := s.Stand(); !errors.Is(err, ErrIllegalAction) {
			t.Errorf("Stand() error = %v, want ErrIllegalAction", err)
		}

		after := s.View()
		if after.Score != before.Score || after.Status != before.Status || len(after.PlayerHand) != len(before.PlayerHand) {
			t.Errorf("state changed: before %+v after %+v", before, after)
		}
		if s.Deck.RemainingCards() != remaining {
			t.Errorf("deck changed from %d to %d", remaining, s.Deck.RemainingCards())
		}
	})
}

func TestSessionStand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		player     Hand
		dealer     Hand
		next       []Card
		wantStatus Status
		wantScore  int
		wantDealer int
	}{
		{
			name:       "dealer busts",
			player:     Hand{c(Ten, Hearts), c(Two, Hearts)},
			dealer:     Hand{c(King, Clubs), c(Six, Clubs)},
			next:       []Card{c(King, Diamonds)},
			wantStatus: DealerBust,
			wantScore:  RoundStake,
			wantDealer: 26,
		},
		{
			name:       "dealer draws to 21",
			player:     Hand{c(Ten, Hearts), c(Nine, Hearts)},
			dealer:     Hand{c(King, Clubs), c(Six, Clubs)},
			next:       []Card{c(Five, Diamonds)},
			wantStatus: DealerBlackjack,
			wantScore:  -RoundStake,
			wantDealer: 21,
		},
		{
			name:       "player higher",
			player:     Hand{c(King, Hearts), c(Nine, Hearts)},
			dealer:     Hand{c(King, Clubs), c(Seven, Clubs)},
			wantStatus: PlayerWin,
			wantScore:  RoundStake,
			wantDealer: 17,
		},
		{
			name:       "dealer higher",
			player:     Hand{c(King, Hearts), c(Six, Hearts)},
			dealer:     Hand{c(King, Clubs), c(Eight, Clubs)},
			wantStatus: DealerWin,
			wantScore:  -RoundStake,
			wantDealer: 18,
		},
		{
			name:       "push",
			player:     Hand{c(King, Hearts), c(Eight, Hearts)},
			dealer:     Hand{c(King, Clubs), c(Eight, Clubs)},
			wantStatus: Push,
			wantScore:  0,
			wantDealer: 18,
		},
		{
			name:       "dealer keeps drawing below 17",
			player:     Hand{c(King, Hearts), c(Nine, Hearts)},
			dealer:     Hand{c(Two, Clubs), c(Three, Clubs)},
			next:       []Card{c(Four, Diamonds), c(Two, Diamonds), c(Ace, Diamonds), c(Six, Diamonds)},
			wantStatus: PlayerWin,
			wantScore:  RoundStake,
			wantDealer: 18,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := rig(t, tt.player, tt.dealer, tt.next...)
			view, err := s.Stand()
			if err != nil {
				t.Fatalf("Stand() error = %v", err)
			}

			if view.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", view.Status, tt.wantStatus)
			}
			if view.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", view.Score, tt.wantScore)
			}
			if view.DealerValue != tt.wantDealer {
				t.Errorf("DealerValue = %d, want %d", view.DealerValue, tt.wantDealer)
			}
			for _, card := range view.DealerHand {
				if card.IsHidden() {
					t.Errorf("dealer card masked after stand: %v", view.DealerHand)
				}
			}

			result, ok := s.Result()
			if !ok {
				t.Fatal("Result() not available after stand")
			}
			if result.Delta != tt.wantScore || result.Status != tt.wantStatus {
				t.Errorf("Result() = %+v", result)
			}
			assertCardCount(t, s)
		})
	}
}

func TestSessionRandomPlayKeepsDeckIntact(t *testing.T) {
	t.Parallel()

	samplers := map[string]Sampler{
		"uniform":  NewUniformSampler(),
		"weighted": NewWeightedSampler(),
	}
	rnd := rand.New(rand.NewSource(42))

	for name, sampler := range samplers {
		s := NewSession("0xPlayer", 0, Rules{Sampler: sampler})
		for round := 0; round < 300; round++ {
			if _, err := s.Start(); err != nil {
				t.Fatalf("%s: Start() error = %v", name, err)
			}
			assertCardCount(t, s)

			for s.Status == InProgress {
				var err error
				if rnd.Intn(2) == 0 {
					_, err = s.Hit()
				} else {
					_, err = s.Stand()
					if s.DealerHand.Value() < dealerStand {
						t.Fatalf("%s: dealer stopped on %d", name, s.DealerHand.Value())
					}
				}
				if err != nil {
					t.Fatalf("%s: action error = %v", name, err)
				}
				assertCardCount(t, s)

				view := s.View()
				masked := 0
				for _, card := range view.DealerHand {
					if card.IsHidden() {
						masked++
					}
				}
				if s.Status == InProgress && masked != 1 {
					t.Fatalf("%s: %d masked dealer cards in progress", name, masked)
				}
				if s.Status != InProgress && masked != 0 {
					t.Fatalf("%s: %d masked dealer cards after round", name, masked)
				}
			}
		}
	}
}
