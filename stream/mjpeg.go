package stream

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"net/http"
	"sync"
)

// Broadcaster is a Sink that encodes frames as JPEG and fans them out to any
// number of HTTP clients as an MJPEG stream.  Slow clients miss frames rather
// than holding up the stream.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[int]chan []byte
	nextID  int
	closed  bool
	// quality is the JPEG encoding quality 0-100
	quality int
	// onClients is called with the number of clients when it changes
	onClients func(n int)
	log       *zap.Logger
}

// NewBroadcaster returns a Broadcaster encoding at the given JPEG quality
func NewBroadcaster(quality int, logger *zap.Logger) *Broadcaster {

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Broadcaster{
		clients:   make(map[int]chan []byte),
		quality:   quality,
		onClients: func(int) {},
		log:       logger,
	}
}

// OnClientsChanged registers fn to be called with the client count whenever
// a client connects or disconnects
func (b *Broadcaster) OnClientsChanged(fn func(n int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onClients = fn
}

// Subscribe adds a new client and returns a channel for receiving frames
func (b *Broadcaster) Subscribe() (int, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	// buffer 2 frames to avoid blocking
	ch := make(chan []byte, 2)

	if b.closed {
		close(ch)
		return id, ch
	}

	b.clients[id] = ch
	b.onClients(len(b.clients))

	b.log.Debug("stream client subscribed", zap.Int("client", id), zap.Int("clients", len(b.clients)))

	return id, ch
}

// Unsubscribe removes a client
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
		b.onClients(len(b.clients))

		b.log.Debug("stream client unsubscribed", zap.Int("client", id), zap.Int("clients", len(b.clients)))
	}
}

// Clients returns the number of connected clients
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish sends the JPEG bytes to all clients that have room in their buffer
func (b *Broadcaster) Publish(jpeg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.clients {
		select {
		case ch <- jpeg:
		default:
			// client is behind, drop frame
		}
	}
}

// Write encodes the frame as JPEG and publishes it.  Encoding is skipped when
// nobody is watching.
func (b *Broadcaster) Write(f *Frame) error {

	if b.Clients() == 0 {
		return nil
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, f.Image,
		[]int{gocv.IMWriteJpegQuality, b.quality})

	if err != nil {
		return errors.Wrapf(err, "error encoding frame %d", f.Num)
	}

	defer buf.Close()

	// copy out of C memory before the buffer is freed
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	b.Publish(data)

	return nil
}

// Close disconnects all clients
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}

	b.closed = true
	b.onClients(0)

	return nil
}

// ServeHTTP streams frames to the browser as multipart JPEG
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	id, frames := b.Subscribe()
	defer b.Unsubscribe(id)

	b.log.Info("stream client connected", zap.String("remote", r.RemoteAddr))

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			b.log.Info("stream client disconnected", zap.String("remote", r.RemoteAddr))
			return

		case jpeg, ok := <-frames:
			if !ok {
				return
			}

			if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
				return
			}

			if _, err := w.Write(jpeg); err != nil {
				return
			}

			if _, err := w.Write([]byte("\r\n")); err != nil {
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
