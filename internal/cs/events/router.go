package events

import (
	"sync"
)

func NewRouter() *Router {
	return &Router{
		parser:    newParser(),
		readers:   make(map[EventType][]chan<- Event),
		readersMu: &sync.RWMutex{},
	}
}

// Router handles receiving raw log lines from a console.Source, parsing them
// into an Event and sending the parsed event to any registered channels.
type Router struct {
	readersAny []chan<- Event
	readers    map[EventType][]chan<- Event
	readersMu  *sync.RWMutex
	parser     *parser
}

// ListenFor registers a channel to start receiving events of the given type.
func (r *Router) ListenFor(logType EventType, handler chan<- Event) {
	r.readersMu.Lock()
	defer r.readersMu.Unlock()

	// Any case is handled more generally
	if logType == Any {
		r.readersAny = append(r.readersAny, handler)

		return
	}

	if _, found := r.readers[logType]; !found {
		r.readers[logType] = make([]chan<- Event, 0)
	}

	r.readers[logType] = append(r.readers[logType], handler)
}

// Send parses a raw line and forwards the result to all matching channels.
// Lines that match no known event are forwarded to Any subscribers in raw
// form so nothing is silently lost.
func (r *Router) Send(line string) {
	var logEvent Event
	if err := r.parser.parse(line, &logEvent); err != nil {
		logEvent.Type = Any
		logEvent.Raw = line
		logEvent.Data = AnyEvent{Raw: line}
	}

	r.readersMu.RLock()
	defer r.readersMu.RUnlock()

	if handlers, found := r.readers[logEvent.Type]; found {
		for _, handler := range handlers {
			handler <- logEvent
		}
	}

	for _, handler := range r.readersAny {
		handler <- logEvent
	}
}
