package transport

// Options configures transports (shared across TCP/WS where applicable)
type Options struct {
	MaxFrameSize int // 单帧负载上限（字节），<=0 时使用 DefaultMaxFrameSize
}

func (o Options) maxFrameSize() int {
	if o.MaxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return o.MaxFrameSize
}
