package notify_test

import (
	"testing"
	"time"

	"github.com/aretw0/itinera/pkg/clock"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visible(intents []domain.Intent) int {
	n := 0
	for _, i := range intents {
		switch i.Type {
		case domain.IntentNotify:
			n++
		case domain.IntentDismiss:
			n--
		}
	}
	return n
}

func TestCenter_AtMostOneVisible(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	var intents []domain.Intent
	center := notify.New(c, func(i domain.Intent) { intents = append(intents, i) })

	center.Warning("Connection lost. Attempting to reconnect...")
	center.Error("Connection error. Please check your internet connection.")
	center.Success("Connection restored!")

	assert.Equal(t, 1, visible(intents))
	cur, ok := center.Current()
	require.True(t, ok)
	assert.Equal(t, "Connection restored!", cur.Text)
	assert.Equal(t, domain.LevelSuccess, cur.Level)
}

func TestCenter_AutoDismiss(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	var intents []domain.Intent
	center := notify.New(c, func(i domain.Intent) { intents = append(intents, i) })

	note := center.Show(domain.LevelInfo, "Voice enabled")
	c.Advance(notify.DefaultTTL)

	_, ok := center.Current()
	assert.False(t, ok)
	require.Len(t, intents, 2)
	assert.Equal(t, domain.IntentDismiss, intents[1].Type)
	assert.Equal(t, note.ID, intents[1].Payload)
}

func TestCenter_ReplacedNotificationTimerIsInert(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	center := notify.New(c, func(domain.Intent) {})

	center.Info("first")
	c.Advance(4 * time.Second)
	center.Info("second")
	c.Advance(2 * time.Second)

	cur, ok := center.Current()
	require.True(t, ok, "the first timer must not dismiss the second notification")
	assert.Equal(t, "second", cur.Text)
}

func TestCenter_NoTTL(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	center := notify.New(c, func(domain.Intent) {}, notify.WithTTL(0))

	center.Info("sticky")
	c.Advance(time.Hour)

	_, ok := center.Current()
	assert.True(t, ok)
}
