package match

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjacentSwapProbabilityZeroIsIdentity(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	l := []int{0, 1, 2, 3, 4, 5}

	AdjacentSwap(l, 0, rnd)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, l)
}

func TestAdjacentSwapProbabilityOnePairAlwaysSwaps(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		l := []int{0, 1}
		AdjacentSwap(l, 1, rnd)
		assert.Equal(t, []int{1, 0}, l)
	}
}

func TestAdjacentSwapPreservesElements(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	l := []int{0, 1, 2, 3, 4, 5, 6, 7}

	AdjacentSwap(l, 0.5, rnd)

	seen := make(map[int]bool)
	for _, v := range l {
		seen[v] = true
	}
	assert.Len(t, seen, 8)
}

func TestOrderPolicies(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))

	assert.Equal(t, []int{0, 1, 2, 3}, Order(4, OrderForward, 0.5, rnd))
	assert.Equal(t, []int{3, 2, 1, 0}, Order(4, OrderReverse, 0.5, rnd))

	shuffled := Order(100, OrderShuffle, 0.5, rnd)
	assert.NotEqual(t, identity(100), shuffled)
	assert.ElementsMatch(t, identity(100), shuffled)

	swapped := Order(4, OrderSwap, 0, rnd)
	assert.Equal(t, []int{0, 1, 2, 3}, swapped)
}

func TestOrderEmpty(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	assert.Empty(t, Order(0, OrderShuffle, 0.5, rnd))
}
