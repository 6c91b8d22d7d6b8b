package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

type Worker interface {
	Name() string
	Start(ctx context.Context) error
}

// Group runs workers until ctx is done or one of them fails, then waits for
// all of them to return.
type Group []Worker

func (g Group) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	var wg sync.WaitGroup
	errCh := make(chan error, len(g))
	wg.Add(len(g))
	for _, w := range g {
		go func(w Worker) {
			defer wg.Done()
			if err := w.Start(runCtx); err != nil {
				errCh <- fmt.Errorf("%s: %w", w.Name(), err)
				cancelFn()
			}
		}(w)
	}

	<-runCtx.Done()
	wg.Wait()

	var err error
	close(errCh)
	for workerErr := range errCh {
		err = multierror.Append(err, workerErr)
	}
	return err
}
