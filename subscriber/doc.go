/*
Package subscriber discovers handler subscriptions from components and registers them
on the right named bus before events are published.
*/
package subscriber
