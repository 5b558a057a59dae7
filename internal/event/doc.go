// Package event provides a pub-sub event bus for the bidding agent.
//
// The monitor publishes its lifecycle (state transitions, polls, bids,
// checkpoint writes) without knowing who listens. The CLI subscribes to
// render status lines, and tests subscribe to observe the agent without
// reaching into its internals.
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers are called synchronously on the
// publishing goroutine and protected against panics.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	bus.Subscribe(event.TypeBidPlaced, func(e event.Event) {
//	    placed := e.(event.BidPlacedEvent)
//	    fmt.Printf("bid %d on %s\n", placed.Price, placed.TaskID)
//	})
//
//	bus.Publish(event.NewBidPlacedEvent(7, "task-1", 80, "0xabc", false))
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - monitor.state_changed, monitor.poll_completed
//   - bid.placed, bid.skipped, bid.failed
//   - checkpoint.saved
//   - feed.error
package event
