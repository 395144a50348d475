package websocket

import (
	"encoding/json"
	"testing"
)

func TestBroadcastReachesOnlySubscribedCountry(t *testing.T) {
	hub := NewHub()
	ci := &Client{send: make(chan []byte, 1)}
	fr := &Client{send: make(chan []byte, 1)}
	hub.Register("CI", ci)
	hub.Register("FR", fr)

	hub.BroadcastBalance("CI", BalanceUpdate{SubWalletID: "sub-1", CountryISO: "CI", Balance: "150.00"})

	select {
	case payload := <-ci.send:
		var update BalanceUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if update.SubWalletID != "sub-1" || update.Balance != "150.00" {
			t.Fatalf("unexpected update %+v", update)
		}
	default:
		t.Fatal("CI subscriber received nothing")
	}
	select {
	case <-fr.send:
		t.Fatal("FR subscriber must not receive CI updates")
	default:
	}
}

func TestBroadcastSkipsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{send: make(chan []byte)}
	hub.Register("CI", slow)

	// must not block with no reader on the other end
	hub.BroadcastBalance("CI", BalanceUpdate{SubWalletID: "sub-1"})
}

func TestUnregisterDropsClient(t *testing.T) {
	hub := NewHub()
	client := &Client{send: make(chan []byte, 1)}
	hub.Register("CI", client)
	hub.Unregister("CI", client)

	hub.BroadcastBalance("CI", BalanceUpdate{SubWalletID: "sub-1"})
	select {
	case <-client.send:
		t.Fatal("unregistered client still received a broadcast")
	default:
	}
}
