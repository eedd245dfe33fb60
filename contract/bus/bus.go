package bus

// Bus is the contract of a priority-ordered, in-process event bus.
//
// Consumers that only publish or only register can depend on Publisher or Registrar.
type Bus interface {
	Registrar
	Publisher

	// Entries returns a copy of the registry (event name -> ordered entries).
	Entries() map[string][]Entry
}
