package console

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/nxadm/tail"
)

func NewLocal(filePath string) *Local {
	return &Local{filePath: filePath}
}

// Local tails the console.log file produced by the dedicated server when it
// runs with `-condebug` or `con_logfile`.
type Local struct {
	tail     *tail.Tail
	filePath string
}

func (l *Local) Open(_ context.Context) error {
	tailConfig := tail.Config{
		// Start at the end of the file, only watch for new lines. Replaying
		// a full log would feed the tracker stale rounds.
		Location: &tail.SeekInfo{
			Offset: 0,
			Whence: io.SeekEnd,
		},
		Logger:    tail.DiscardingLogger,
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
	}

	tailFile, errTail := tail.TailFile(l.filePath, tailConfig)
	if errTail != nil {
		return errors.Join(errTail, ErrOpen)
	}

	l.tail = tailFile

	return nil
}

func (l *Local) Close(_ context.Context) error {
	if l.tail == nil {
		return nil
	}

	if errStop := l.tail.Stop(); errStop != nil {
		return errors.Join(errStop, ErrClose)
	}

	return nil
}

// Start reads incoming log lines and forwards them to the receiver until the
// context is cancelled.
func (l *Local) Start(ctx context.Context, receiver Receiver) {
	for {
		select {
		case <-ctx.Done():
			if err := l.Close(ctx); err != nil {
				slog.Error("Failed to stop tailing console.log", slog.String("error", err.Error()))
			}

			return
		case msg := <-l.tail.Lines:
			if msg == nil {
				continue
			}

			receiver.Send(msg.Text)
		}
	}
}
