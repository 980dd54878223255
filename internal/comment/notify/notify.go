// Package notify carries "book changed" hints from the comment store to
// watching feeds. Hints carry no data: a subscriber refetches its page.
package notify

import "context"

// Publisher announces that a book's comments changed.
type Publisher interface {
	Publish(ctx context.Context, bookID string) error
}

// Channel is the pub/sub channel name for a book.
func Channel(bookID string) string {
	return "bookcomments:changed:" + bookID
}

// forward coalesces hints from in into out until ctx is done or in closes.
// out is closed on return.
func forward(ctx context.Context, in <-chan struct{}, out chan<- struct{}) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}
