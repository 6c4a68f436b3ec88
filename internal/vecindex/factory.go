package vecindex

import (
	"fmt"
	"math/rand"

	"github.com/fabfab/vectordb/internal/vecdb"
)

// Kind identifies one of the three interchangeable index strategies.
type Kind string

const (
	KindFlatL2 Kind = "flatl2"
	KindIVF    Kind = "ivf"
	KindLSH    Kind = "lsh"
)

// New constructs a fresh vecdb.Index of the given kind, using spec
// defaults for every strategy's tunables. rng may be nil, in which case
// each stochastic strategy (ivf, lsh) seeds its own.
func New(kind Kind, rng *rand.Rand) (vecdb.Index, error) {
	switch kind {
	case KindFlatL2:
		return NewFlatL2(), nil
	case KindIVF:
		return NewIVF(defaultIVFClusters, defaultIVFIters, rng), nil
	case KindLSH:
		return NewLSH(defaultLSHPlanes, defaultLSHDim, rng), nil
	default:
		return nil, fmt.Errorf("vecindex: unknown index kind %q", kind)
	}
}
