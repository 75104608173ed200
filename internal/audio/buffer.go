package audio

import (
	"sync"
)

// FrameBuffer reassembles arbitrary-length audio chunks into fixed-size
// frames. Bytes are kept in strict FIFO order; a partial trailing frame is
// retained until later appends complete it.
type FrameBuffer struct {
	mu        sync.Mutex
	frameSize int
	buf       []byte
}

// NewFrameBuffer creates a frame buffer producing frames of frameSize bytes.
func NewFrameBuffer(frameSize int) *FrameBuffer {
	return &FrameBuffer{
		frameSize: frameSize,
	}
}

// Append adds a chunk of audio bytes to the buffer.
func (fb *FrameBuffer) Append(chunk []byte) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.buf = append(fb.buf, chunk...)
}

// Drain removes and returns all complete frames currently buffered, in
// arrival order. Any remainder shorter than one frame stays buffered.
func (fb *FrameBuffer) Drain() [][]byte {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	n := len(fb.buf) / fb.frameSize
	if n == 0 {
		return nil
	}

	frames := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		frame := make([]byte, fb.frameSize)
		copy(frame, fb.buf[i*fb.frameSize:(i+1)*fb.frameSize])
		frames = append(frames, frame)
	}

	remainder := len(fb.buf) - n*fb.frameSize
	copy(fb.buf, fb.buf[n*fb.frameSize:])
	fb.buf = fb.buf[:remainder]

	return frames
}

// Len returns the number of bytes currently buffered.
func (fb *FrameBuffer) Len() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.buf)
}

// Reset discards all buffered bytes.
func (fb *FrameBuffer) Reset() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.buf = fb.buf[:0]
}
