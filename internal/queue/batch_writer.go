package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// RecordHandler processes one consumed record message.
type RecordHandler func(msg kafka.Message) error

// BatchWriter consumes record messages from Kafka and writes them to the
// database in batches, committing offsets only after a successful write.
type BatchWriter struct {
	consumer      *Consumer
	handler       RecordHandler
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(consumer *Consumer, handler RecordHandler, batchSize int, flushInterval time.Duration) *BatchWriter {
	return &BatchWriter{
		consumer:      consumer,
		handler:       handler,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to database
func (bw *BatchWriter) Start(ctx context.Context) error {
	bw.wg.Add(1)
	go bw.run(ctx)
	return nil
}

// Stop stops the batch writer gracefully
func (bw *BatchWriter) Stop() {
	close(bw.stopCh)
	bw.wg.Wait()
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer bw.wg.Done()

	var batch []kafka.Message
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := bw.consumer.Consume(ctx)
			if err != nil {
				select {
				case <-bw.stopCh:
					return
				default:
				}
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			msgChan <- msg
		}
	}()

	for {
		select {
		case <-bw.stopCh:
			// Flush remaining batch before stopping
			if len(batch) > 0 {
				bw.flush(ctx, batch)
			}
			return

		case <-ticker.C:
			// Periodic flush
			if len(batch) > 0 {
				bw.flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgChan:
			batch = append(batch, msg)

			// Flush if batch is full
			if len(batch) >= bw.batchSize {
				bw.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (bw *BatchWriter) flush(ctx context.Context, batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}

	successCount := 0
	for _, msg := range batch {
		if err := bw.handler(msg); err != nil {
			fmt.Printf("Failed to process message: %v\n", err)
			continue
		}
		successCount++

		// Commit offset after successful processing
		if err := bw.consumer.Commit(ctx, msg); err != nil {
			fmt.Printf("Failed to commit offset: %v\n", err)
		}
	}

	fmt.Printf("Flushed batch of %d records to database\n", successCount)
}
