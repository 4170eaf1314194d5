package edgepurge

import "sync"

// noticeQueue collects one-shot notices emitted by background purge work.
// Messages survive until the next drain (one redirect cycle from the admin
// UI's point of view) and are then gone.
type noticeQueue struct {
	mu   sync.Mutex
	msgs []string
}

func newNoticeQueue() *noticeQueue {
	return &noticeQueue{}
}

func (q *noticeQueue) push(msg string) {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()
}

// drain returns all queued notices and empties the queue.
func (q *noticeQueue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := q.msgs
	q.msgs = nil
	return msgs
}
