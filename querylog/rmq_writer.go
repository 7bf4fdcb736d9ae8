package querylog

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/adjust/rmq/v3"
	"github.com/go-redis/redis/v7"
)

const rmqConnectionTag = "regionstats"

// RMQWriter publishes events as JSON payloads onto an rmq queue for
// asynchronous consumers.
type RMQWriter struct {
	client *redis.Client
	queue  rmq.Queue
	errors chan error
}

func NewRMQWriter(addr string, password string, db int, queueName string) (*RMQWriter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// rmq reports background heartbeat failures on this channel.
	errorsCh := make(chan error, 10)
	connection, err := rmq.OpenConnectionWithRedisClient(rmqConnectionTag, client, errorsCh)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not open rmq connection: %w", err)
	}
	queue, err := connection.OpenQueue(queueName)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not open rmq queue %q: %w", queueName, err)
	}

	go func() {
		for err := range errorsCh {
			log.Printf("rmq query log error: %v\n", err)
		}
	}()

	return &RMQWriter{
		client: client,
		queue:  queue,
		errors: errorsCh,
	}, nil
}

// Write publishes in a separate goroutine so that Redis latency never adds to
// the response time.
func (w *RMQWriter) Write(e *Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("could not marshal query log event: err = %v\n", err)
		return
	}

	go func() {
		if err := w.queue.Publish(string(payload)); err != nil {
			log.Printf("could not publish query log event %s: err = %v\n", e.ID, err)
		}
	}()
}

func (w *RMQWriter) Close() {
	if err := w.client.Close(); err != nil {
		log.Printf("could not close rmq redis client: err = %v\n", err)
	}
}
