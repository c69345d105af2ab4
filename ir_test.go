package sel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_negativeComparators(t *testing.T) {
	negative := []Comparator{Ne, NotMatch, NotIn, NotPrefix, NotRange}
	for _, c := range negative {
		assert.True(t, negativeComparators[c], "%s should be negative", c)
	}

	positive := []Comparator{Eq, Match, Gt, Gte, Lt, Lte, In, Prefix, RangeCmp}
	for _, c := range positive {
		assert.False(t, negativeComparators[c], "%s should not be negative", c)
	}
}

func Test_Node_isNode(t *testing.T) {
	var nodes []Node = []Node{
		&Filter{},
		&QueryStringNode{},
		&Context{},
		&Not{},
		&Group{},
	}
	assert.Len(t, nodes, 5)
}
