package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 10; i++ {
		q.Push(i)
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		got, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
		if got != i {
			t.Errorf("Expected %d, got %d", i, got)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d items", q.Len())
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue[string]()

	done := make(chan string)
	go func() {
		item, err := q.Pop(context.Background())
		if err != nil {
			t.Errorf("Pop failed: %v", err)
		}
		done <- item
	}()

	time.Sleep(50 * time.Millisecond)
	q.Push("hello")

	select {
	case got := <-done:
		if got != "hello" {
			t.Errorf("Expected 'hello', got '%s'", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up after Push")
	}
}

func TestQueuePopRespectsContext(t *testing.T) {
	q := NewQueue[int]()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := q.Pop(ctx)
	if err == nil {
		t.Errorf("Expected context error from Pop on empty queue")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(p*perProducer + i)
			}
		}(p)
	}

	received := make(map[int]bool)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		ctx := context.Background()
		for i := 0; i < producers*perProducer; i++ {
			item, err := q.Pop(ctx)
			if err != nil {
				t.Errorf("Pop failed: %v", err)
				return
			}
			if received[item] {
				t.Errorf("Item %d received twice", item)
				return
			}
			received[item] = true
		}
	}()

	wg.Wait()

	select {
	case <-consumerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Consumer did not drain queue in time")
	}

	if len(received) != producers*perProducer {
		t.Errorf("Expected %d distinct items, got %d", producers*perProducer, len(received))
	}
}

func TestQueuePerProducerOrderPreserved(t *testing.T) {
	q := NewQueue[int]()

	// Single producer: order must be exact
	go func() {
		for i := 0; i < 100; i++ {
			q.Push(i)
		}
	}()

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		got, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
		if got != i {
			t.Fatalf("Order violated: expected %d, got %d", i, got)
		}
	}
}
