package entropy

import "testing"

func TestNewClientRequiresKey(t *testing.T) {
	if c := NewClient(""); c != nil {
		t.Fatal("empty key should yield a nil client")
	}
	if c := NewClient("k"); !c.Enabled() {
		t.Fatal("keyed client not enabled")
	}
}

func TestNilClientFallsBack(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Fatal("nil client claims to be enabled")
	}
	for i := 0; i < 100; i++ {
		v := c.Float()
		if v < 0 || v >= 1 {
			t.Fatalf("draw %v outside [0, 1)", v)
		}
	}
}

func TestCryptoSourceRange(t *testing.T) {
	src := Crypto()
	for i := 0; i < 100; i++ {
		v := src.Float()
		if v < 0 || v >= 1 {
			t.Fatalf("draw %v outside [0, 1)", v)
		}
	}
}
