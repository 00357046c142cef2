package rules

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams(t *testing.T) {
	p := Params{"i": 3, "f": 2.5, "i64": int64(4), "s": "x", "nan": math.NaN(), "bad": true}

	v, err := p.Float("i", 0)
	assert.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = p.Float("missing", 7)
	assert.NoError(t, err)
	assert.Equal(t, 7.0, v)

	_, err = p.Float("nan", 0)
	assert.Error(t, err)

	_, err = p.Float("bad", 0)
	assert.Error(t, err)

	n, err := p.PositiveInt("i64", 1)
	assert.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = p.PositiveInt("f", 1)
	assert.Error(t, err)

	s, err := p.String("s", "", true)
	assert.NoError(t, err)
	assert.Equal(t, "x", s)

	_, err = p.String("missing", "", true)
	assert.Error(t, err)

	s, err = p.String("missing", "def", false)
	assert.NoError(t, err)
	assert.Equal(t, "def", s)

	_, err = p.String("i", "", false)
	assert.Error(t, err)

	var empty Params
	v, err = empty.Float("x", 1)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, v)
}
