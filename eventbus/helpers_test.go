package eventbus_test

import (
	cbus "github.com/next-trace/scg-event-bus/contract/bus"
	"github.com/next-trace/scg-event-bus/eventbus"
)

func eventbusProgress(done *[]int) eventbus.BatchOpt {
	return eventbus.WithBatchProgress(func(n, _ int) { *done = append(*done, n) })
}

func eventbusOnError(failed *[]int) eventbus.BatchOpt {
	return eventbus.WithBatchOnError(func(i int, _ cbus.Event, _ error) { *failed = append(*failed, i) })
}
