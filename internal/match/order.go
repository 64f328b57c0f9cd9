package match

import "math/rand"

// Policy selects how a list of equally acceptable candidates is ordered
// before the first one is taken.
type Policy string

const (
	// OrderForward keeps the original order.
	OrderForward Policy = "forward"
	// OrderReverse reverses it.
	OrderReverse Policy = "reverse"
	// OrderSwap applies the adjacent-pair probabilistic swap.
	OrderSwap Policy = "swap"
	// OrderShuffle fully randomizes it.
	OrderShuffle Policy = "shuffle"
)

// Order returns a permutation of [0, n) according to the policy. Competing
// bot instances are configured with different policies so they do not all
// grab the same candidate.
func Order(n int, policy Policy, p float64, rnd *rand.Rand) []int {
	idx := identity(n)
	switch policy {
	case OrderForward:
	case OrderReverse:
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	case OrderSwap:
		AdjacentSwap(idx, p, rnd)
	default:
		rnd.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}
	return idx
}

// AdjacentSwap transposes each adjacent pair of l with probability p, in a
// random pair order. The result stays close to the original order (earlier
// elements keep rough priority) while the exact sequence varies between
// runs.
func AdjacentSwap(l []int, p float64, rnd *rand.Rand) {
	if len(l) < 2 {
		return
	}
	pairs := identity(len(l) - 1)
	rnd.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	for _, i := range pairs {
		if rnd.Float64() < p {
			l[i], l[i+1] = l[i+1], l[i]
		}
	}
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
