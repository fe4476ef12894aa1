package transport

import "testing"

func TestConfigEquivalent(t *testing.T) {
	a := Config{Mode: ModeLAN, Host: "10.0.0.5", Port: 8443}
	b := Config{Mode: ModeLAN, Host: "10.0.0.5"}
	if !a.Equivalent(b) {
		t.Fatal("same host with explicit default port should be equivalent to implicit default port")
	}

	c := Config{Mode: ModeLAN, Host: "10.0.0.6", Port: 8443}
	if a.Equivalent(c) {
		t.Fatal("different hosts must not be equivalent")
	}

	d := Config{Mode: ModeCable, CableProtocol: CableProtocolUSBAOA}
	e := Config{Mode: ModeCable, CableProtocol: CableProtocolUSBAOA}
	if !d.Equivalent(e) {
		t.Fatal("same cable protocol should be equivalent")
	}

	f := Config{Mode: ModeCable, CableProtocol: CableProtocolRS232}
	if d.Equivalent(f) {
		t.Fatal("different cable protocols must not be equivalent")
	}

	g := Config{Mode: ModeAppToApp}
	h := Config{Mode: ModeAppToApp}
	if !g.Equivalent(h) {
		t.Fatal("app-to-app configs carry no distinguishing fields and are always equivalent")
	}

	if g.Equivalent(d) {
		t.Fatal("different modes must never be equivalent")
	}
}

func TestConfigScheme(t *testing.T) {
	if (Config{Secure: false}).Scheme() != "ws" {
		t.Error("insecure config should use ws scheme")
	}
	if (Config{Secure: true}).Scheme() != "wss" {
		t.Error("secure config should use wss scheme")
	}
}
