/*
Package rabbitmq forwards bus events to a RabbitMQ topic exchange.
It routes by event name, includes an auto-reconnect publisher,
and supports optional header propagation via a bus.HeaderPropagator.
*/
package rabbitmq
