package status

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuha.dev/livetrace/internal/event"
)

func TestBoardFollowsEvents(t *testing.T) {
	eb, err := event.NewBus(1)
	require.NoError(t, err)
	b := NewBoard()
	b.Attach(eb)
	ctx := context.Background()

	assert.Equal(t, Initial, b.Text())

	require.NoError(t, eb.Emit(ctx, event.TopicLinkState, event.LinkState{State: "Connecting"}))
	assert.Equal(t, Initial, b.Text())

	require.NoError(t, eb.Emit(ctx, event.TopicLinkState, event.LinkState{State: "Connected"}))
	assert.Equal(t, Connected, b.Text())

	require.NoError(t, eb.Emit(ctx, event.TopicLinkError, event.LinkError{Err: errors.New("reset")}))
	assert.Equal(t, LinkFault, b.Text())

	require.NoError(t, eb.Emit(ctx, event.TopicLinkState, event.LinkState{State: "Disconnected"}))
	assert.Equal(t, Disconnected, b.Text())

	require.NoError(t, eb.Emit(ctx, event.TopicGeoError, event.GeoError{Reason: "PERMISSION_DENIED", Message: "User denied Geolocation"}))
	assert.Equal(t, "Location error: PERMISSION_DENIED - User denied Geolocation", b.Text())
}
