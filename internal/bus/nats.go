// Package bus consumes queue jobs over NATS JetStream. The queue owns
// redelivery and backoff; the consumer only reports success (ack) or
// failure (nak) per attempt.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

type Consumer struct {
	Conn *nats.Conn
	js   nats.JetStreamContext
}

type Handler func(ctx context.Context, data []byte) error

func NewConsumer(url string) (*Consumer, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Consumer{Conn: conn, js: js}, nil
}

func (c *Consumer) Close() {
	if c.Conn != nil {
		c.Conn.Drain()
		c.Conn.Close()
	}
}

// Run subscribes the shared queue group and processes deliveries with a
// bounded worker pool until ctx is cancelled. Each delivery is handled as an
// independent task; no ordering is guaranteed between concurrent jobs.
func (c *Consumer) Run(ctx context.Context, subject, queue string, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}
	ch := make(chan *nats.Msg, 64)
	sub, err := c.js.ChanQueueSubscribe(subject, queue, ch,
		nats.ManualAck(),
		nats.AckWait(2*time.Minute),
		nats.MaxAckPending(workers*2),
	)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-ch:
					if msg == nil {
						return
					}
					if err := handler(ctx, msg.Data); err != nil {
						_ = msg.Nak()
					} else {
						_ = msg.Ack()
					}
				}
			}
		}()
	}

	<-ctx.Done()
	_ = sub.Unsubscribe()
	wg.Wait()
	return nil
}
