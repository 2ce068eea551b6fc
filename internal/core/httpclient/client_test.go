package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestNewOutbound_Timeouts(t *testing.T) {
	c := NewOutbound(0)
	if c.Timeout != defaultTimeout {
		t.Fatalf("default timeout = %v", c.Timeout)
	}
	c = NewOutbound(2 * time.Second)
	if c.Timeout != 2*time.Second {
		t.Fatalf("timeout = %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport = %T", c.Transport)
	}
	if tr.ResponseHeaderTimeout != 2*time.Second || tr.MaxIdleConnsPerHost != 2 {
		t.Fatalf("transport = %+v", tr)
	}
}
