package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrDeckExhausted is returned when more cards are requested than remain
var ErrDeckExhausted = errors.New("deck exhausted")

// Sampler picks a candidate index in [0, n)
type Sampler interface {
	Pick(n int) int
}

// lockedRand is a math/rand source that is safe to share between sessions
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// UniformSampler picks every index with equal probability
type UniformSampler struct {
	rnd *lockedRand
}

// NewUniformSampler creates a uniform sampler seeded from the clock
func NewUniformSampler() *UniformSampler {
	return &UniformSampler{rnd: newLockedRand()}
}

func (s *UniformSampler) Pick(n int) int {
	return s.rnd.intn(n)
}

// WeightedSampler picks floor(u1*u2*n), which favours low indices.
// It reproduces the legacy product-of-uniforms draw policy.
type WeightedSampler struct {
	rnd *lockedRand
}

// NewWeightedSampler creates a product-of-uniforms sampler seeded from the clock
func NewWeightedSampler() *WeightedSampler {
	return &WeightedSampler{rnd: newLockedRand()}
}

func (s *WeightedSampler) Pick(n int) int {
	i := int(s.rnd.float64() * s.rnd.float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

type Deck struct {
	Cards []Card `json:"cards"`
}

// NewDeck creates a new ordered 52-card deck
func NewDeck() *Deck {
	deck := &Deck{Cards: make([]Card, 0, len(suits)*len(ranks))}
	for _, suit := range suits {
		for _, rank := range ranks {
			deck.Cards = append(deck.Cards, Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}

// Draw removes count cards chosen by the sampler and returns them in deck
// order. The remaining cards keep their relative order. Nothing is removed
// when the deck holds fewer than count cards.
//
// Every pick after the first indexes the partially shuffled remainder rather
// than deck order, so a biased sampler is exact only for single-card draws.
func (d *Deck) Draw(sampler Sampler, count int) ([]Card, error) {
	n := len(d.Cards)
	if count > n {
		return nil, ErrDeckExhausted
	}
	if count <= 0 {
		return []Card{}, nil
	}

	// Partial Fisher-Yates over the index space: the first count slots of
	// order end up holding distinct indices without any retries.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	chosen := make([]bool, n)
	for i := 0; i < count; i++ {
		j := i + sampler.Pick(n-i)
		order[i], order[j] = order[j], order[i]
		chosen[order[i]] = true
	}

	drawn := make([]Card, 0, count)
	remaining := make([]Card, 0, n-count)
	for i, card := range d.Cards {
		if chosen[i] {
			drawn = append(drawn, card)
		} else {
			remaining = append(remaining, card)
		}
	}
	d.Cards = remaining

	return drawn, nil
}

// RemainingCards returns the number of cards left in the deck
func (d *Deck) RemainingCards() int {
	return len(d.Cards)
}
