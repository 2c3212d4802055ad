package stream

import (
	"bufio"
	"bytes"
	"gocv.io/x/gocv"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestBroadcasterPublish(t *testing.T) {

	b := NewBroadcaster(80, nil)
	defer b.Close()

	var mu sync.Mutex
	var changes []int

	b.OnClientsChanged(func(n int) {
		mu.Lock()
		changes = append(changes, n)
		mu.Unlock()
	})

	id1, ch1 := b.Subscribe()
	id2, ch2 := b.Subscribe()

	if b.Clients() != 2 {
		t.Fatalf("expected 2 clients, got %d", b.Clients())
	}

	b.Publish([]byte("one"))

	for _, ch := range []<-chan []byte{ch1, ch2} {
		if got := <-ch; string(got) != "one" {
			t.Errorf("expected frame %q, got %q", "one", got)
		}
	}

	b.Unsubscribe(id1)

	if _, ok := <-ch1; ok {
		t.Errorf("expected channel of unsubscribed client to be closed")
	}

	// unsubscribing twice is harmless
	b.Unsubscribe(id1)
	b.Unsubscribe(id2)

	mu.Lock()
	defer mu.Unlock()

	want := []int{1, 2, 1, 0}

	if len(changes) != len(want) {
		t.Fatalf("expected client changes %v, got %v", want, changes)
	}

	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("expected client changes %v, got %v", want, changes)
			break
		}
	}
}

func TestBroadcasterDropsForSlowClient(t *testing.T) {

	b := NewBroadcaster(80, nil)
	defer b.Close()

	_, ch := b.Subscribe()

	// more frames than the client buffer, publish must not block
	for i := 0; i < 10; i++ {
		b.Publish([]byte{byte(i)})
	}

	if len(ch) != cap(ch) {
		t.Errorf("expected full buffer of %d, got %d", cap(ch), len(ch))
	}

	// oldest frames are kept, newer ones dropped
	if got := <-ch; got[0] != 0 {
		t.Errorf("expected first frame 0, got %d", got[0])
	}
}

func TestBroadcasterClose(t *testing.T) {

	b := NewBroadcaster(80, nil)

	_, ch := b.Subscribe()
	b.Close()

	if _, ok := <-ch; ok {
		t.Errorf("expected channel closed after Close")
	}

	// late subscribers get a closed channel
	_, late := b.Subscribe()

	if _, ok := <-late; ok {
		t.Errorf("expected closed channel after Close")
	}

	if b.Clients() != 0 {
		t.Errorf("expected no clients, got %d", b.Clients())
	}
}

func TestBroadcasterWrite(t *testing.T) {

	b := NewBroadcaster(80, nil)
	defer b.Close()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 128, 255, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	f := &Frame{Num: 3, Image: img}

	// nobody watching, nothing is encoded
	if err := b.Write(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, ch := b.Subscribe()

	if err := b.Write(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jpeg := <-ch

	// JPEG start of image marker
	if len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
		t.Fatalf("expected JPEG data, got % x", jpeg[:min(len(jpeg), 4)])
	}

	decoded, err := gocv.IMDecode(jpeg, gocv.IMReadColor)

	if err != nil {
		t.Fatalf("error decoding published frame: %v", err)
	}

	defer decoded.Close()

	if decoded.Cols() != 64 || decoded.Rows() != 48 {
		t.Errorf("expected 64x48 frame, got %dx%d", decoded.Cols(), decoded.Rows())
	}
}

func TestBroadcasterServeHTTP(t *testing.T) {

	b := NewBroadcaster(80, nil)
	defer b.Close()

	srv := httptest.NewServer(b)
	defer srv.Close()

	resp, err := http.Get(srv.URL)

	if err != nil {
		t.Fatalf("error connecting: %v", err)
	}

	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("unexpected content type %q", ct)
	}

	// wait for the handler to subscribe
	deadline := time.Now().Add(2 * time.Second)

	for b.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never subscribed")
		}

		time.Sleep(10 * time.Millisecond)
	}

	payload := []byte("not really a jpeg")
	b.Publish(payload)

	r := bufio.NewReader(resp.Body)

	boundary, err := r.ReadString('\n')

	if err != nil || strings.TrimSpace(boundary) != "--frame" {
		t.Fatalf("expected boundary line, got %q err %v", boundary, err)
	}

	header, _ := r.ReadString('\n')

	if strings.TrimSpace(header) != "Content-Type: image/jpeg" {
		t.Errorf("unexpected part header %q", header)
	}

	// blank line before the body
	r.ReadString('\n')

	body := make([]byte, len(payload))

	if _, err := io.ReadFull(r, body); err != nil {
		t.Fatalf("error reading part body: %v", err)
	}

	if !bytes.Equal(body, payload) {
		t.Errorf("expected body %q, got %q", payload, body)
	}
}
