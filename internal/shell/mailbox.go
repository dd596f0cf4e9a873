package shell

import (
	"sync"

	"github.com/rbright/parley/internal/session"
)

// Mailbox is a non-blocking session.Observer for a UI loop to drain.
// Only the latest state is kept; notices are dropped once the buffer is full.
type Mailbox struct {
	states  chan session.State
	notices chan session.Notice

	done      chan struct{}
	closeOnce sync.Once
}

// NewMailbox returns a mailbox buffering up to noticeBuffer notices.
func NewMailbox(noticeBuffer int) *Mailbox {
	if noticeBuffer < 1 {
		noticeBuffer = 1
	}
	return &Mailbox{
		states:  make(chan session.State, 1),
		notices: make(chan session.Notice, noticeBuffer),
		done:    make(chan struct{}),
	}
}

// StateChanged replaces any undelivered state with s.
func (m *Mailbox) StateChanged(s session.State) {
	for {
		select {
		case m.states <- s:
			return
		default:
		}
		select {
		case <-m.states:
		default:
		}
	}
}

func (m *Mailbox) Notice(n session.Notice) {
	select {
	case m.notices <- n:
	default:
	}
}

// States delivers coalesced snapshots.
func (m *Mailbox) States() <-chan session.State {
	return m.states
}

// Notices delivers surfaced errors.
func (m *Mailbox) Notices() <-chan session.Notice {
	return m.notices
}

// Done is closed by Close so readers blocked on the mailbox can return.
func (m *Mailbox) Done() <-chan struct{} {
	return m.done
}

func (m *Mailbox) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}
