package util

import (
	"sync"

	"github.com/mysocial-network/beacon/module"
)

// AllReady calls Ready on all components and returns a channel that is closed once all of
// them are ready.
func AllReady(components ...module.ReadyDoneAware) <-chan struct{} {
	chans := make([]<-chan struct{}, 0, len(components))
	for _, c := range components {
		chans = append(chans, c.Ready())
	}
	return AllClosed(chans...)
}

// AllDone calls Done on all components and returns a channel that is closed once all of
// them are done.
func AllDone(components ...module.ReadyDoneAware) <-chan struct{} {
	chans := make([]<-chan struct{}, 0, len(components))
	for _, c := range components {
		chans = append(chans, c.Done())
	}
	return AllClosed(chans...)
}

// AllClosed returns a channel that is closed when all input channels are closed.
func AllClosed(channels ...<-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(len(channels))
	for _, ch := range channels {
		go func(ch <-chan struct{}) {
			<-ch
			wg.Done()
		}(ch)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// CheckClosed returns true if the channel was closed.
func CheckClosed(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// WaitError waits for either an error on errChan or for done to be closed.
// An error that is available at the same time as done is closed is still returned, so that
// callers never miss an irrecoverable error because of select ordering.
func WaitError(errChan <-chan error, done <-chan struct{}) error {
	select {
	case err := <-errChan:
		return err
	case <-done:
		select {
		case err := <-errChan:
			return err
		default:
		}
		return nil
	}
}
