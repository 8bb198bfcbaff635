package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance("Anna", "anna"))
	assert.Equal(t, 1, Distance("anna", "ana"))
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 4, Distance("", "abcd"))
}

func TestMatch(t *testing.T) {
	cases := []struct {
		query, text string
		want        bool
	}{
		{"ann", "Ann Lee", true},
		{"smit", "John Smith", true},
		{"jhon", "John Smith", true},
		{"gmail", "ann@gmail.com", true},
		{"zzz", "John Smith", false},
		{"", "John", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Match(tc.query, tc.text), "%q in %q", tc.query, tc.text)
	}
}

func TestScoreRanksExactAboveTypo(t *testing.T) {
	exact := Score("maria", Field{"Maria Lopez", 100}, Field{"m@x.com", 60})
	typo := Score("maria", Field{"Marla Stone", 100}, Field{"ms@x.com", 60})
	none := Score("maria", Field{"Bob", 100})

	assert.Greater(t, exact, typo)
	assert.Greater(t, typo, 0.0)
	assert.Zero(t, none)
}

func TestScoreNearMissDecaysWithDistance(t *testing.T) {
	one := Score("maria", Field{"Marla", 100})
	two := Score("maria", Field{"Marlo", 100})
	far := Score("maria", Field{"Martin", 100})

	assert.InDelta(t, 100*0.5*2/3, one, 1e-9)
	assert.InDelta(t, 100*0.5*1/3, two, 1e-9)
	assert.Zero(t, far)
	assert.Equal(t, 150.0, Score("smith", Field{"John Smith", 100}))
	assert.Equal(t, 100.0, Score("smit", Field{"John Smith", 100}))
}
