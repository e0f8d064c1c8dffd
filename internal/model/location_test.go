package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := model.ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, model.TimeOfDay{Hour: 9, Minute: 30}, tod)

	tod, err = model.ParseTimeOfDay("22:15:45")
	require.NoError(t, err)
	assert.Equal(t, model.TimeOfDay{Hour: 22, Minute: 15, Second: 45}, tod)
	assert.Equal(t, "22:15:45", tod.String())

	_, err = model.ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = model.ParseTimeOfDay("not a time")
	assert.Error(t, err)
}

func TestTimeOfDayOrderingIsStrict(t *testing.T) {
	open, _ := model.ParseTimeOfDay("10:00")
	same, _ := model.ParseTimeOfDay("10:00:00")
	later, _ := model.ParseTimeOfDay("10:00:01")

	assert.False(t, same.After(open))
	assert.False(t, same.Before(open))
	assert.True(t, later.After(open))
	assert.True(t, open.Before(later))
}
