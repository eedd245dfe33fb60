/*
Package eventbus provides a priority-ordered, in-process event bus.

Handlers are registered per event name with an integer priority and run one at a time,
highest priority first, when the event is published. A Set gives callers named bus
instances without any package-level state.
*/
package eventbus
