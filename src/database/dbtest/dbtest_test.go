package dbtest

import (
	"testing"

	"demotrader/src/model"

	"github.com/stretchr/testify/assert"
)

func TestOpenGivesEachCallItsOwnDatabase(t *testing.T) {
	first := Open(t)
	second := Open(t)

	User(t, first, "only-in-first", "100")

	var users int64
	assert.NoError(t, second.Model(&model.User{}).Count(&users).Error)
	assert.Zero(t, users)

	assert.Equal(t, "EURUSD", Instrument(t, second, "EURUSD").Symbol)
}
