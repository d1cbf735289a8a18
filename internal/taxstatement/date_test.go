package taxstatement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateParseAndString(t *testing.T) {
	d, err := ParseDate("2023-06-30")
	require.NoError(t, err)
	assert.Equal(t, "2023-06-30", d.String())
	assert.Equal(t, 2023, d.Year())
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2023, time.June, 30)
	b := NewDate(2023, time.July, 1)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Equal(b))
	assert.Equal(t, -1, a.Compare(b))
}

func TestDateAddDays(t *testing.T) {
	a := NewDate(2023, time.December, 31)
	b := a.AddDays(1)
	assert.Equal(t, "2024-01-01", b.String())
}

func TestDateZero(t *testing.T) {
	var d Date
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())
}

func TestDateTextRoundTrip(t *testing.T) {
	d := NewDate(2023, time.June, 30)
	text, err := d.MarshalText()
	require.NoError(t, err)

	var d2 Date
	require.NoError(t, d2.UnmarshalText(text))
	assert.True(t, d.Equal(d2))
}
