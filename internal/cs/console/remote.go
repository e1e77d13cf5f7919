package console

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/leighmacdonald/slottrack/internal/cs/rcon"
)

type srcdsPacket byte

const (
	// Normal log messages.
	s2aLogString srcdsPacket = 0x52
	// Sent when sv_logsecret is configured for log message auth.
	s2aLogString2 srcdsPacket = 0x53
)

type RemoteOpts struct {
	// ExternalAddress is where the game server can reach us, used for
	// logaddress_add. Defaults to ListenAddress.
	ExternalAddress string
	ListenAddress   string
	RemoteAddress   string
	RemotePassword  string
	Secret          int64
}

func NewRemote(opts RemoteOpts) (*Remote, error) {
	if opts.ExternalAddress == "" {
		opts.ExternalAddress = opts.ListenAddress
	}

	if opts.RemoteAddress == "" || opts.ListenAddress == "" {
		return nil, ErrConfig
	}

	return &Remote{opts: opts}, nil
}

// Remote reads inbound srcds log packets over udp. The agent registers itself
// with the game server via logaddress_add on open and removes itself again on
// close.
type Remote struct {
	conn *net.UDPConn
	opts RemoteOpts
}

func (l *Remote) Open(ctx context.Context) error {
	udpAddr, errResolve := net.ResolveUDPAddr("udp4", l.opts.ListenAddress)
	if errResolve != nil {
		return errors.Join(errResolve, ErrOpen)
	}

	connection, errListen := net.ListenUDP("udp4", udpAddr)
	if errListen != nil {
		return errors.Join(errListen, ErrOpen)
	}

	l.conn = connection

	conn := rcon.New(l.opts.RemoteAddress, l.opts.RemotePassword)
	if _, errExec := conn.Exec(ctx, "logaddress_add "+l.opts.ExternalAddress, false); errExec != nil {
		return errors.Join(errExec, ErrOpen)
	}

	resp, errList := conn.Exec(ctx, "logaddress_list", false)
	if errList != nil {
		return errors.Join(errList, ErrOpen)
	}

	if !strings.Contains(resp, l.opts.ExternalAddress) {
		return ErrOpen
	}

	return nil
}

func (l *Remote) Close(ctx context.Context) error {
	var err error
	// Be cool and remove ourselves from the log address list.
	conn := rcon.New(l.opts.RemoteAddress, l.opts.RemotePassword)
	if _, errExec := conn.Exec(ctx, "logaddress_del "+l.opts.ExternalAddress, false); errExec != nil {
		err = errors.Join(err, errExec)
	}

	if l.conn != nil {
		if errClose := l.conn.Close(); errClose != nil {
			err = errors.Join(err, errClose)
		}
	}

	if err != nil {
		return errors.Join(err, ErrClose)
	}

	return nil
}

// Start runs the udp read loop, authenticating messages against the
// configured sv_logsecret when one is set.
func (l *Remote) Start(ctx context.Context, receiver Receiver) {
	slog.Info("Starting remote log reader", slog.String("listen_addr", l.opts.ListenAddress+"/udp"))

	insecureCount := uint64(0)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			buffer := make([]byte, 1024)
			readLen, _, errRead := l.conn.ReadFromUDP(buffer)
			if errRead != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("UDP log read error", slog.String("error", errRead.Error()))

				continue
			}

			if readLen < 6 {
				continue
			}

			switch srcdsPacket(buffer[4]) {
			case s2aLogString: // Legacy format, no secret.
				if l.opts.Secret > 0 {
					if insecureCount%100 == 0 {
						slog.Error("Received log packet type 0x52 while expecting a secret",
							slog.Uint64("count", insecureCount+1))
					}
					insecureCount++

					continue
				}

				receiver.Send(strings.TrimSpace(string(buffer[5:readLen])))
			case s2aLogString2: // Secure format, prefixed with the secret.
				line := string(buffer[:readLen])

				idx := strings.Index(line, "L ")
				if idx == -1 {
					slog.Warn("Received malformed log message: no line marker")

					continue
				}

				secret, errConv := strconv.ParseInt(strings.TrimSpace(line[5:idx]), 10, 64)
				if errConv != nil {
					slog.Warn("Received malformed log message: bad secret",
						slog.String("error", errConv.Error()))

					continue
				}

				if l.opts.Secret > 0 && secret != l.opts.Secret {
					slog.Warn("Received unauthenticated log message: invalid secret")

					continue
				}

				receiver.Send(strings.TrimSpace(line[idx:]))
			}
		}
	}
}
