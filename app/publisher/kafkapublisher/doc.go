// Package kafkapublisher publishes MovementPosted events to a Kafka topic.
//
// Messages are keyed by account id so that all events of one account land on the same partition
// and keep their order. The event type travels in the "event-type" header; the value is the JSON
// payload produced by shell.EventMessageFrom.
package kafkapublisher
