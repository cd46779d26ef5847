// Package rabbitmq implements the HAmq transport on top of amqp091-go.
//
// This package includes:
//   - Backend: dials broker connections from a transport.Config
//   - Connection: opens channels on a single broker connection
//   - Channel: maps the primitive operations onto an amqp091 channel and
//     pumps deliveries into a transport.DeliveryHandler
//
// Nothing here retries or reconnects. Broker and network failures are
// translated into transport.ShutdownError values so the layer above can
// decide how to recover.
package rabbitmq
