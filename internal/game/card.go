package game

type Suit string
type Rank string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"

	// HiddenSuit marks a face-down card in a public view
	HiddenSuit Suit = "?"
)

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"

	// Hidden is the placeholder rank of a masked dealer card. It never
	// appears in authoritative session state.
	Hidden Rank = "?"
)

var (
	suits = []Suit{Spades, Hearts, Diamonds, Clubs}
	ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
)

// Card is an immutable playing card
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// MaskedCard is what the player sees in place of the dealer's hole card
var MaskedCard = Card{Suit: HiddenSuit, Rank: Hidden}

// IsHidden reports whether the card is the masked placeholder
func (c Card) IsHidden() bool {
	return c.Rank == Hidden
}

// GetValue returns the blackjack value of the card
func (c Card) GetValue() int {
	switch c.Rank {
	case Ace:
		return 11 // Ace is 11 until the hand needs it demoted
	case Ten, Jack, Queen, King:
		return 10
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	default:
		return 0
	}
}

func (c Card) String() string {
	return string(c.Rank) + string(c.Suit)
}
