// Package event defines the negotiation event stream and a synchronous
// pub-sub bus for delivering it.
//
// Components publish events as a session progresses (demand understood,
// candidates filtered, offers submitted, proposals distributed, feedback
// evaluated, terminal outcomes). Consumers such as the transport layer or
// a store subscribe by event type or to all events.
//
// Events are published from each session's single-writer goroutine, so
// delivery is ordered per session. Consumers must treat unknown event
// types as ignorable for forward compatibility.
//
// The core types are:
//
//   - [Event]: the interface all events implement (type, session, timestamp)
//   - [Bus]: a synchronous pub-sub dispatcher
//
// # Usage
//
//	bus := event.NewBus()
//	bus.Subscribe("proposal.finalized", func(e event.Event) {
//	    fin := e.(event.ProposalFinalizedEvent)
//	    log.Printf("session %s finalized proposal %s", fin.NegotiationID(), fin.ProposalID)
//	})
//
// # Thread Safety
//
// The Bus is safe for concurrent use.
package event
