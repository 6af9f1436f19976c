package core

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPServeModeServesFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello over http"), 0o644); err != nil {
		t.Fatal(err)
	}

	addr := freeTCPAddr(t)
	m := &HTTPServeMode{
		Address: addr,
		Root:    root,
		Printer: testPrinter(),
		Logger:  testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/hello.txt")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "hello over http" {
		t.Errorf("body = %q", body)
	}

	// Missing paths come back as 404, not an error.
	nf, err := http.Get("http://" + addr + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	nf.Body.Close()
	if nf.StatusCode != http.StatusNotFound {
		t.Errorf("missing file status = %d", nf.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("server returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestHTTPServeModeBindFailure(t *testing.T) {
	addr := freeTCPAddr(t)
	first := &HTTPServeMode{Address: addr, Printer: testPrinter(), Logger: testLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- first.Run(ctx) }()

	// Wait for the first server to own the port.
	for i := 0; i < 50; i++ {
		if resp, err := http.Get("http://" + addr + "/"); err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	second := &HTTPServeMode{Address: addr, Printer: testPrinter(), Logger: testLogger()}
	if err := second.Run(context.Background()); err == nil {
		t.Fatal("expected bind error on an occupied port")
	}
}
