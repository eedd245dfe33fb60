package bus

// Header keys set by the forwarding adapters.
const (
	HeaderEventName = "x-event-name"
	HeaderEventID   = "x-event-id"
	HeaderKey       = "key"
)

// ForwardOptions controls how a forwarded event is addressed.
type ForwardOptions struct {
	// Destination overrides the subject/topic/routing key derived from the event name.
	Destination string
	Key         string
	ID          string
	Headers     map[string]string
}

// MessageHeaders returns a fresh header map combining o.Headers with the event name, ID and key.
func (o ForwardOptions) MessageHeaders(eventName string) map[string]string {
	h := make(map[string]string, len(o.Headers)+3)
	for k, v := range o.Headers {
		h[k] = v
	}

	h[HeaderEventName] = eventName

	if o.ID != "" {
		h[HeaderEventID] = o.ID
	}

	if o.Key != "" {
		h[HeaderKey] = o.Key
	}

	return h
}
