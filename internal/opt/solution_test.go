package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSolution(t *testing.T) {
	for _, s := range []string{
		"1,1,2,2,0,3,3,0",
		"[1, 1, 2, 2, 0, 3, 3, 0]",
		" 1 1 2 2 0 3 3 0\n",
	} {
		got, err := ParseSolution(s)
		require.NoError(t, err, s)
		assert.Equal(t, Solution{1, 1, 2, 2, 0, 3, 3, 0}, got)
	}

	_, err := ParseSolution("1,x,0")
	assert.ErrorIs(t, err, ErrSyntax)

	got, err := ParseSolution("[]")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSolutionString(t *testing.T) {
	assert.Equal(t, "1,1,0,2,2,3,3,0", Solution{1, 1, 0, 2, 2, 3, 3, 0}.String())
}

func TestDecodeMarksPickupsAndDeliveries(t *testing.T) {
	in := loadFixture(t)
	plan, err := Decode(in, Solution{1, 2, 1, 2, 0, 0, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, Route{{0, true}, {1, true}, {0, false}, {1, false}}, plan.Routes[0])
	assert.Empty(t, plan.Routes[1])
	assert.Equal(t, Route{{2, true}, {2, false}}, plan.Outsourced)
	assert.Equal(t, Solution{1, 2, 1, 2, 0, 0, 3, 3}, plan.Encode())

	plan, err = Decode(in, Solution{1, 1, 1, 1, 0, 0, 2, 2, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, Route{{0, true}, {0, false}, {0, true}, {0, false}}, plan.Routes[0])
	assert.Equal(t, Route{{1, true}, {1, false}, {2, true}, {2, false}}, plan.Outsourced)
	assert.Equal(t, Solution{1, 1, 1, 1, 0, 0, 2, 2, 3, 3}, plan.Encode())

	_, err = Decode(in, Solution{1, 1, 1, 0, 0, 2, 2, 3, 3})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestValidate(t *testing.T) {
	in := loadFixture(t)
	assert.NoError(t, Solution{1, 1, 2, 2, 0, 3, 3, 0}.Validate(in))
	assert.NoError(t, OutsourceAll(in).Validate(in))

	err := Solution{1, 1, 0, 0, 2, 2}.Validate(in)
	assert.ErrorIs(t, err, ErrAssignment)

	err = Solution{1, 1, 0, 1, 1, 0, 2, 2, 3, 3}.Validate(in)
	assert.ErrorIs(t, err, ErrAssignment)

	err = Solution{1, 1, 0}.Validate(in)
	assert.ErrorIs(t, err, ErrDimension)
}
