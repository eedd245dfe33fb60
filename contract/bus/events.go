package bus

// Event is a named payload used by the Chain and Batch helpers.
type Event struct {
	Name string
	Data any
}
