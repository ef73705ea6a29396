package pipeline

import (
	"context"
	"net"
	"time"
)

const readyPollInterval = 100 * time.Millisecond

// settle waits for the relay to accept clients before the transcode stage
// connects to it. Without a ready address this is a fixed delay. With one,
// the address is polled until a TCP dial succeeds; if ReadyTimeout passes
// first the start carries on anyway, like the fixed delay would.
func (s *Supervisor) settle(ctx context.Context) error {
	if s.opts.RelayReadyAddr == "" {
		return sleepCtx(ctx, s.opts.SettleDelay)
	}

	deadline := time.Now().Add(s.opts.ReadyTimeout)
	for {
		if err := checkTCP(ctx, s.opts.RelayReadyAddr); err == nil {
			s.logger.Debug("Relay ready", "addr", s.opts.RelayReadyAddr)
			return nil
		}
		if !time.Now().Before(deadline) {
			s.logger.Warn("Relay not ready before timeout, continuing",
				"addr", s.opts.RelayReadyAddr, "timeout", s.opts.ReadyTimeout)
			return nil
		}
		if err := sleepCtx(ctx, readyPollInterval); err != nil {
			return err
		}
	}
}

func checkTCP(ctx context.Context, addr string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
