// Package hamq is a resilience layer over an AMQP client.
//
// A Connection and the Channels created from it retry every operation with
// exponential backoff until it succeeds or fails with an error that is not
// retryable. Channels record the exchanges, queues, bindings, prefetch and
// consumers they set up, and replay all of it after a lost connection, so
// applications never re-declare state or restart consumers themselves.
//
//	conn, err := hamq.DialEnv()
//	if err != nil {
//		return err
//	}
//	ch := conn.NewChannel()
//	if err := ch.QueueDeclare(hamq.NewQueue("jobs")); err != nil {
//		return err
//	}
//	_, err = ch.Consume(hamq.NewConsume("jobs", func(d *hamq.Delivery) error {
//		process(d.Body)
//		return d.Ack()
//	}))
package hamq
