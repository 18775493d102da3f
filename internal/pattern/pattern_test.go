package pattern

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyMatchesNothing(t *testing.T) {
	m, err := Compile("")
	require.NoError(t, err)
	assert.False(t, m.Active())
	assert.False(t, m.Search(""))
	assert.False(t, m.MatchFull("anything"))
}

func TestFullVersusSearch(t *testing.T) {
	m := MustCompile("mycalc_.*")

	assert.True(t, m.MatchFull("mycalc_add"))
	assert.False(t, m.MatchFull("ns::mycalc_add"), "full match is anchored at both ends")
	assert.True(t, m.Search("ns::mycalc_add"))

	alt := MustCompile("a|b")
	assert.True(t, alt.MatchFull("b"))
	assert.False(t, alt.MatchFull("ab"))
}

func TestCompileError(t *testing.T) {
	_, err := Compile("CONSTANT_(")
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "CONSTANT_(", perr.Expr)
	assert.Contains(t, perr.Msg, "missing closing )")

	diag := perr.Diagnostic()
	assert.Contains(t, diag, "Bad regular expression:\n")
	assert.Contains(t, diag, "  Expression: CONSTANT_(\n")
}

func TestCompileErrorOffset(t *testing.T) {
	_, err := Compile(`abc[z-a]`)
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 4, perr.Offset)
	assert.Contains(t, perr.Diagnostic(), "              "+"    ^\n")
}
