package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a game event.
type EventType string

const (
	// Turn events
	EventGameStarted EventType = "GAME_STARTED"
	EventTurnStarted EventType = "TURN_STARTED"
	EventTurnEnded   EventType = "TURN_ENDED"
	EventCardsDrawn  EventType = "CARDS_DRAWN"
	EventDeckRefill  EventType = "DECK_REFILLED"
	EventGameWon     EventType = "GAME_WON"

	// Move events
	EventCardBanked     EventType = "CARD_BANKED"
	EventPropertyPlayed EventType = "PROPERTY_PLAYED"
	EventActionPlayed   EventType = "ACTION_PLAYED"
	EventRentArmed      EventType = "RENT_ARMED"
	EventRentCancelled  EventType = "RENT_CANCELLED"
	EventRentCharged    EventType = "RENT_CHARGED"
	EventCardWasted     EventType = "CARD_WASTED"

	// Contested action events
	EventTargetsChosen  EventType = "TARGETS_CHOSEN"
	EventCounterPlayed  EventType = "COUNTER_PLAYED"
	EventActionResolved EventType = "ACTION_RESOLVED"
	EventActionBlocked  EventType = "ACTION_BLOCKED"
	EventActionFizzled  EventType = "ACTION_FIZZLED"

	// Settlement events
	EventPayment EventType = "PAYMENT"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type        EventType `json:"type"`
	GameID      string    `json:"gameId"`
	Seat        int       `json:"seat"`             // seat the event is about
	CardID      string    `json:"cardId,omitempty"` // card involved, if any
	Amount      int       `json:"amount,omitempty"` // money moved, cards drawn, chain depth...
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle, typed or not.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	for _, listener := range bus.typedListeners[event.Type] {
		listener.Callback(event)
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates an event with the common fields populated.
func NewEvent(eventType EventType, seat int, cardID, description string) Event {
	return Event{
		Type:        eventType,
		Seat:        seat,
		CardID:      cardID,
		Description: description,
	}
}

// NewEventWithAmount creates an event carrying an amount.
func NewEventWithAmount(eventType EventType, seat int, cardID, description string, amount int) Event {
	evt := NewEvent(eventType, seat, cardID, description)
	evt.Amount = amount
	return evt
}
