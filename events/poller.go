package events

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

// DefaultCycle is the polling interval when none is configured.
const DefaultCycle = 10 * time.Second

// Poller drains a Source for a fixed set of namespaces on a fixed
// cycle and hands each non-empty batch to every registered handler.
// One poller runs per provider instance that declared namespaces to
// subscribe to.
type Poller struct {
	source     Source
	namespaces []string
	cycle      time.Duration
	handlers   []Handler
	log        logr.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(source Source, namespaces []string, cycle time.Duration, log logr.Logger) *Poller {
	if cycle <= 0 {
		cycle = DefaultCycle
	}
	return &Poller{
		source:     source,
		namespaces: namespaces,
		cycle:      cycle,
		log:        log,
	}
}

// AddHandler registers a handler for every dequeued batch. Handlers
// must be registered before Start.
func (p *Poller) AddHandler(handler Handler) {
	p.handlers = append(p.handlers, handler)
}

// Start launches the polling loop. It returns immediately; the loop
// stops when ctx is canceled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.cycle)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				p.pollOnce(pollCtx)
			}
		}
	}()
}

// Stop halts the polling loop and waits for it to finish.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Poller) pollOnce(ctx context.Context) {
	for _, namespace := range p.namespaces {
		dequeued, err := p.source.Dequeue(ctx, namespace)
		if err != nil {
			// Event delivery is best effort; the next cycle retries.
			p.log.Error(err, "failed to dequeue events", "namespace", namespace)
			continue
		}
		if len(dequeued) == 0 {
			continue
		}

		set := EventSet{Namespace: namespace, Events: dequeued}
		group, groupCtx := errgroup.WithContext(ctx)
		for _, handler := range p.handlers {
			handle := handler
			group.Go(func() error {
				handle(groupCtx, set)
				return nil
			})
		}
		_ = group.Wait()
	}
}
