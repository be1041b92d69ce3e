package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/navstack/utils/randengine"
)

func TestSameSeedSameSequence(t *testing.T) {
	a, b := randengine.New(42), randengine.New(42)
	items := []string{"a", "b", "c", "d", "e"}
	for i := 0; i < 50; i++ {
		assert.Equal(t, randengine.Choice(a, items), randengine.Choice(b, items))
	}
}

func TestChoiceEmpty(t *testing.T) {
	assert.Panics(t, func() { randengine.Choice(randengine.New(1), []int{}) })
}
