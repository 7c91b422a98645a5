package simulator

import (
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// minPollDelay keeps a tiny interval spread over many values from spinning.
const minPollDelay = time.Millisecond

// pollLoop refreshes polled values one at a time. A value with intensity n
// is refreshed on every n-th pass over the polled set.
func (e *Engine) pollLoop() {
	defer e.wg.Done()

	var (
		cursor int
		pass   uint64
	)
	timer := time.NewTimer(e.pollDelay())
	defer timer.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.pollWake:
			timer.Reset(e.pollDelay())
		case <-timer.C:
			e.pollNext(&cursor, &pass)
			timer.Reset(e.pollDelay())
		}
	}
}

// wakePoller makes the poller recompute its delay. It never blocks.
func (e *Engine) wakePoller() {
	select {
	case e.pollWake <- struct{}{}:
	default:
	}
}

// pollDelay is the wait before the next individual poll. Unless polls are
// spaced individually, the interval is one complete pass and is divided
// across the polled values.
func (e *Engine) pollDelay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := len(e.polledIDs())
	if e.betweenPolls || count == 0 {
		return e.pollInterval
	}
	return max(e.pollInterval/time.Duration(count), minPollDelay)
}

// polledIDs lists every polled value on online homes in ValueID order.
// Callers hold e.mu.
func (e *Engine) polledIDs() []ozw.ValueID {
	var ids []ozw.ValueID
	for _, h := range e.homes {
		for _, n := range h.nodes {
			for id, v := range n.values {
				if v.meta.Polled {
					ids = append(ids, id)
				}
			}
		}
	}
	slices.SortFunc(ids, ozw.ValueID.Compare)
	return ids
}

func (e *Engine) pollNext(cursor *int, pass *uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.polledIDs()
	if len(ids) == 0 {
		*cursor = 0
		return
	}
	if *cursor >= len(ids) {
		*cursor = 0
		*pass++
	}
	id := ids[*cursor]
	*cursor++

	h, n, v, ok := e.lookup(id)
	if !ok || n.info.Failed {
		return
	}
	intensity := uint64(max(v.meta.PollIntensity, 1))
	if *pass%intensity != 0 {
		return
	}
	h.stats.polls++
	h.stats.frames++
	e.emit(ozw.Notification{Type: ozw.NotificationValueRefreshed, HomeID: id.HomeID, NodeID: id.NodeID, ValueID: id})
}
