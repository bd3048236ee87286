package mqtt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/spf13/viper"
)

func TestLoadBrokerConfig(t *testing.T) {
	if opts := loadBrokerConfig(testr.New(t), nil); opts.Capabilities == nil {
		t.Fatal("default options have no capabilities")
	}

	v := viper.New()
	v.Set("mqtt.broker", map[string]any{
		"ClientNetWriteBufferSize": 4096,
		"SysTopicResendInterval":   10,
	})
	opts := loadBrokerConfig(testr.New(t), v)
	if opts.ClientNetWriteBufferSize != 4096 || opts.SysTopicResendInterval != 10 {
		t.Errorf("options not loaded: %+v", opts)
	}
	if opts.Capabilities == nil {
		t.Error("loaded options have no capabilities")
	}
}

func TestBrokerLifecycle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := Broker(ctx, logr.Discard(), BrokerConfig{Address: addr}, nil)
	if err != nil {
		t.Fatalf("Broker: %v", err)
	}
	if err := WaitForBrokerReady(ctx, logr.Discard(), addr, 5*time.Second); err != nil {
		t.Fatal(err)
	}
	if srv.Clients.Len() != 0 {
		t.Errorf("fresh broker has %d clients", srv.Clients.Len())
	}

	cancel()
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			break
		}
		conn.Close()
		if time.Now().After(deadline) {
			t.Fatal("broker still listening after cancel")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestWaitForBrokerReadyTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	err = WaitForBrokerReady(context.Background(), logr.Discard(), addr, 200*time.Millisecond)
	if err == nil {
		t.Fatalf("no broker at %s, yet it is ready", addr)
	}
}
