package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
)

const (
	headerSize = 4

	// DefaultMaxFrameSize 服务端默认帧上限：内容上限 + 信封开销，留足余量
	DefaultMaxFrameSize = 64 * 1024
	// ClientMaxFrameSize 客户端默认帧上限，USER_LIST 快照可能较大
	ClientMaxFrameSize = 1 << 20
)

// EncodeFrame 生成 [len uint32 BE][payload]
func EncodeFrame(payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)
	return buf
}

// WriteFrame writes header and payload with a single Write so that concurrent
// writers serialised by the caller never interleave partial frames.
func WriteFrame(w io.Writer, payload []byte) error {
	if w == nil {
		return errors.New("frame writer is nil")
	}
	if len(payload) > math.MaxInt32 {
		return withContext(ErrFrameTooLarge, "%d bytes", len(payload))
	}
	_, err := w.Write(EncodeFrame(payload))
	return err
}

// ReadFrame reads exactly one frame. A clean end of stream before the first
// header byte returns io.EOF; a stream cut anywhere later returns
// ErrIncompleteFrame. maxSize <= 0 disables the size cap.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	if r == nil {
		return nil, errors.New("frame reader is nil")
	}
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, withContext(ErrIncompleteFrame, "length prefix")
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > math.MaxInt32 {
		return nil, withContext(ErrBadLength, "negative length %d", int32(n))
	}
	if maxSize > 0 && int(n) > maxSize {
		return nil, withContext(ErrFrameTooLarge, "%d > %d", n, maxSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, withContext(ErrIncompleteFrame, "payload %d bytes", n)
		}
		return nil, err
	}
	return buf, nil
}

// FrameCodec 数据包的编解码器，使用长度前缀帧格式
type FrameCodec struct {
	r       *bufio.Reader
	w       io.Writer
	maxSize int
	readMu  sync.Mutex // 读锁
	writeMu sync.Mutex // 写锁
}

func NewFrameCodec(rw io.ReadWriter, maxSize int) *FrameCodec {
	return &FrameCodec{r: bufio.NewReader(rw), w: rw, maxSize: maxSize}
}

// ReadFrame 读取一个帧
func (c *FrameCodec) ReadFrame() ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	return ReadFrame(c.r, c.maxSize)
}

// WriteFrame 写入一个帧
func (c *FrameCodec) WriteFrame(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.w, payload)
}
