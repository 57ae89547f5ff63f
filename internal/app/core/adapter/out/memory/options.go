package memory

import "time"

type options struct {
	now func() time.Time
}

// Option 設定記憶體帳本
type Option func(*options)

// WithClock 替換時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
