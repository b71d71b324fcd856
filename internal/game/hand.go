package game

const (
	blackjack   = 21
	dealerStand = 17
)

// Hand is an ordered run of cards held by the player or the dealer
type Hand []Card

// Value calculates the blackjack total of the hand. Masked cards count 0.
func (h Hand) Value() int {
	score := 0
	aces := 0

	for _, card := range h {
		if card.IsHidden() {
			continue
		}
		if card.Rank == Ace {
			aces++
		}
		score += card.GetValue()
	}

	// Demote aces one at a time while the hand would bust
	for aces > 0 && score > blackjack {
		score -= 10
		aces--
	}

	return score
}
