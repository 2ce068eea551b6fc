// Package locate resolves a client's approximate position for proximity search.
package locate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/observability"
)

var (
	ErrTimeout    = errors.New("geolocation timed out")
	ErrNoLocation = errors.New("no location for client")
)

type Locator interface {
	Locate(ctx context.Context, ip string) (model.Coordinate, error)
}

// Static always answers with one configured origin.
type Static struct {
	Origin model.Coordinate
}

func (s Static) Locate(ctx context.Context, _ string) (model.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return model.Coordinate{}, err
	}
	return s.Origin, nil
}

// Chain asks each locator in order and returns the first answer.
type Chain []Locator

func (c Chain) Locate(ctx context.Context, ip string) (model.Coordinate, error) {
	var errs []error
	for _, l := range c {
		if l == nil {
			continue
		}
		coord, err := l.Locate(ctx, ip)
		if err == nil {
			return coord, nil
		}
		if ctx.Err() != nil {
			return model.Coordinate{}, err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return model.Coordinate{}, ErrNoLocation
	}
	return model.Coordinate{}, errors.Join(errs...)
}

type bounded struct {
	next    Locator
	timeout time.Duration
}

// WithTimeout bounds every call to next. Expiry yields ErrTimeout; the
// caller's own cancellation is returned unchanged. A timeout <= 0 leaves
// calls bounded only by the caller's context.
func WithTimeout(next Locator, timeout time.Duration) Locator {
	return &bounded{next: next, timeout: timeout}
}

type answer struct {
	coord model.Coordinate
	err   error
}

func (b *bounded) Locate(ctx context.Context, ip string) (model.Coordinate, error) {
	tctx, cancel := ctx, context.CancelFunc(func() {})
	if b.timeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, b.timeout)
	}
	defer cancel()

	ch := make(chan answer, 1)
	go func() {
		c, err := b.next.Locate(tctx, ip)
		ch <- answer{coord: c, err: err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			if errors.Is(a.err, context.DeadlineExceeded) && ctx.Err() == nil {
				observability.IncLocate("timeout")
				return model.Coordinate{}, fmt.Errorf("%w after %s", ErrTimeout, b.timeout)
			}
			observability.IncLocate("error")
			return model.Coordinate{}, a.err
		}
		observability.IncLocate("ok")
		return a.coord, nil
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			observability.IncLocate("canceled")
			return model.Coordinate{}, err
		}
		observability.IncLocate("timeout")
		return model.Coordinate{}, fmt.Errorf("%w after %s", ErrTimeout, b.timeout)
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
