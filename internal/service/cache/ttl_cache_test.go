package cache

import (
	"testing"
	"time"
)

func TestTTLCacheRoundTrip(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("signals:today", []byte(`{"status":200}`), time.Minute); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}

	b, ok, err := c.GetBytes("signals:today")
	if err != nil || !ok {
		t.Fatalf("GetBytes = %v, %v", ok, err)
	}
	if string(b) != `{"status":200}` {
		t.Fatalf("GetBytes body = %s", b)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("signals:today", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, ok, _ := c.GetBytes("signals:today"); ok {
		t.Fatal("expired entry still served")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("v"), 0); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if _, ok, _ := c.GetBytes("k"); !ok {
		t.Fatal("zero-ttl entry dropped")
	}
}
