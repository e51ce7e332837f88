package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitVisibleAfterSwap(t *testing.T) {
	b := NewBus()
	var got []MatchOpened
	Subscribe(b, func(ev MatchOpened) { got = append(got, ev) })

	Emit(b, MatchOpened{RegSeconds: 60})

	// Not visible until the buffers rotate.
	b.DispatchAll()
	require.Empty(t, got)

	b.SwapBuffers()
	b.DispatchAll()
	require.Len(t, got, 1)
	require.Equal(t, 60, got[0].RegSeconds)

	// Next rotation clears it.
	b.SwapBuffers()
	b.DispatchAll()
	require.Len(t, got, 1)
}

func TestTypedRouting(t *testing.T) {
	b := NewBus()
	var opened, killed int
	Subscribe(b, func(MatchOpened) { opened++ })
	Subscribe(b, func(PlayerKilled) { killed++ })

	Emit(b, MatchOpened{})
	Emit(b, PlayerKilled{KillerID: 1, VictimID: 2})
	Emit(b, PlayerKilled{KillerID: 2, VictimID: 1})

	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, 1, opened)
	require.Equal(t, 2, killed)
}

func TestConcurrentEmit(t *testing.T) {
	b := NewBus()
	var total int
	Subscribe(b, func(PlayerKilled) { total++ })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Emit(b, PlayerKilled{})
			}
		}()
	}
	wg.Wait()

	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, 800, total)
}
