package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrIllegalAction is returned when hit or stand is called outside a live round
var ErrIllegalAction = errors.New("no round in progress")

// RoundStake is the score moved by every decided round
const RoundStake = 100

type Status string

const (
	Idle            Status = "idle"            // No round dealt yet
	InProgress      Status = "inProgress"      // Player may hit or stand
	PlayerBust      Status = "playerBust"      // Player went over 21
	PlayerBlackjack Status = "playerBlackjack" // Player reached exactly 21
	DealerBust      Status = "dealerBust"      // Dealer went over 21
	DealerBlackjack Status = "dealerBlackjack" // Dealer finished on 21
	PlayerWin       Status = "playerWin"       // Player beat the dealer on points
	DealerWin       Status = "dealerWin"       // Dealer beat the player on points
	Push            Status = "push"            // Tie, no score change
)

// Terminal reports whether the status ends the round
func (s Status) Terminal() bool {
	return s != Idle && s != InProgress
}

// Rules are the house options a session is played under
type Rules struct {
	// Sampler chooses which cards leave the deck. Defaults to uniform.
	Sampler Sampler
	// ResolveNaturals settles a two-card 21 right after the deal instead
	// of waiting for the player's first action.
	ResolveNaturals bool
}

// Session is one identity's blackjack table
type Session struct {
	Identity   string    `json:"identity"`
	RoundID    string    `json:"roundId"`
	PlayerHand Hand      `json:"playerHand"`
	DealerHand Hand      `json:"dealerHand"`
	Deck       *Deck     `json:"-"`
	Status     Status    `json:"status"`
	Score      int       `json:"score"`
	Message    string    `json:"message"`
	UpdatedAt  time.Time `json:"updatedAt"`

	delta   int
	sampler Sampler
	rules   Rules
}

// View is the player's picture of a session. While the round is live the
// dealer's hole card is masked.
type View struct {
	RoundID     string `json:"roundId"`
	PlayerHand  []Card `json:"playerHand"`
	DealerHand  []Card `json:"dealerHand"`
	Message     string `json:"message"`
	Score       int    `json:"score"`
	Status      Status `json:"status"`
	PlayerValue int    `json:"playerValue"`
	DealerValue int    `json:"dealerValue"`
}

// RoundResult summarises a finished round for the score history
type RoundResult struct {
	RoundID     string    `json:"roundId"`
	Identity    string    `json:"identity"`
	Status      Status    `json:"status"`
	Delta       int       `json:"delta"`
	Score       int       `json:"score"`
	PlayerValue int       `json:"playerValue"`
	DealerValue int       `json:"dealerValue"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// NewSession creates an idle session carrying a previously persisted score
func NewSession(identity string, score int, rules Rules) *Session {
	sampler := rules.Sampler
	if sampler == nil {
		sampler = NewUniformSampler()
	}

	return &Session{
		Identity:   identity,
		PlayerHand: Hand{},
		DealerHand: Hand{},
		Deck:       NewDeck(),
		Status:     Idle,
		Score:      score,
		UpdatedAt:  time.Now(),
		sampler:    sampler,
		rules:      rules,
	}
}

// Start deals a fresh round from a full deck. Any previous round is discarded
// but the score carries over.
func (s *Session) Start() (View, error) {
	s.Deck = NewDeck()
	s.PlayerHand = Hand{}
	s.DealerHand = Hand{}
	s.RoundID = uuid.New().String()
	s.Message = ""
	s.delta = 0

	// Alternate: player, dealer, player, dealer
	for i := 0; i < 2; i++ {
		if err := s.deal(&s.PlayerHand); err != nil {
			return View{}, err
		}
		if err := s.deal(&s.DealerHand); err != nil {
			return View{}, err
		}
	}

	s.Status = InProgress
	s.UpdatedAt = time.Now()

	if s.rules.ResolveNaturals {
		s.settleNaturals()
	}

	return s.View(), nil
}

// Hit draws one card for the player
func (s *Session) Hit() (View, error) {
	if s.Status != InProgress {
		return View{}, ErrIllegalAction
	}

	if err := s.deal(&s.PlayerHand); err != nil {
		return View{}, err
	}

	switch v := s.PlayerHand.Value(); {
	case v > blackjack:
		s.finish(PlayerBust)
	case v == blackjack:
		s.finish(PlayerBlackjack)
	}

	s.UpdatedAt = time.Now()
	return s.View(), nil
}

// Stand ends the player's turn, lets the dealer draw to 17 and settles the round
func (s *Session) Stand() (View, error) {
	if s.Status != InProgress {
		return View{}, ErrIllegalAction
	}

	playerValue := s.PlayerHand.Value()

	for s.DealerHand.Value() < dealerStand {
		if err := s.deal(&s.DealerHand); err != nil {
			return View{}, fmt.Errorf("dealer draw: %w", err)
		}
	}

	dealerValue := s.DealerHand.Value()
	switch {
	case dealerValue > blackjack:
		s.finish(DealerBust)
	case dealerValue == blackjack:
		s.finish(DealerBlackjack)
	case playerValue > dealerValue:
		s.finish(PlayerWin)
	case playerValue < dealerValue:
		s.finish(DealerWin)
	default:
		s.finish(Push)
	}

	s.UpdatedAt = time.Now()
	return s.View(), nil
}

// View returns the player's view of the session
func (s *Session) View() View {
	dealer := make([]Card, len(s.DealerHand))
	copy(dealer, s.DealerHand)
	if s.Status == InProgress {
		for i := 1; i < len(dealer); i++ {
			dealer[i] = MaskedCard
		}
	}

	player := make([]Card, len(s.PlayerHand))
	copy(player, s.PlayerHand)

	return View{
		RoundID:     s.RoundID,
		PlayerHand:  player,
		DealerHand:  dealer,
		Message:     s.Message,
		Score:       s.Score,
		Status:      s.Status,
		PlayerValue: s.PlayerHand.Value(),
		DealerValue: Hand(dealer).Value(),
	}
}

// Result describes the finished round. ok is false while no round has ended.
func (s *Session) Result() (RoundResult, bool) {
	if !s.Status.Terminal() {
		return RoundResult{}, false
	}

	return RoundResult{
		RoundID:     s.RoundID,
		Identity:    s.Identity,
		Status:      s.Status,
		Delta:       s.delta,
		Score:       s.Score,
		PlayerValue: s.PlayerHand.Value(),
		DealerValue: s.DealerHand.Value(),
		FinishedAt:  s.UpdatedAt,
	}, true
}

// CardsInPlay returns the number of cards across the deck and both hands
func (s *Session) CardsInPlay() int {
	return s.Deck.RemainingCards() + len(s.PlayerHand) + len(s.DealerHand)
}

// deal moves one card from the deck into the hand
func (s *Session) deal(hand *Hand) error {
	cards, err := s.Deck.Draw(s.sampler, 1)
	if err != nil {
		return err
	}
	*hand = append(*hand, cards...)
	return nil
}

func (s *Session) settleNaturals() {
	player := s.PlayerHand.Value() == blackjack
	dealer := s.DealerHand.Value() == blackjack

	switch {
	case player && dealer:
		s.finish(Push)
	case player:
		s.finish(PlayerBlackjack)
	case dealer:
		s.finish(DealerBlackjack)
	}
}

func (s *Session) finish(status Status) {
	s.Status = status

	switch status {
	case PlayerBlackjack, DealerBust, PlayerWin:
		s.delta = RoundStake
		s.Message = "Player wins"
	case PlayerBust, DealerBlackjack, DealerWin:
		s.delta = -RoundStake
		s.Message = "Dealer wins"
	default:
		s.delta = 0
		s.Message = "Push"
	}

	s.Score += s.delta
}
