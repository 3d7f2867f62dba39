package retrier

import "io"

// RetrierOpts holds the retry policy shared by Connect, Do and MultiConnects.
type RetrierOpts struct {
	Count    uint // Number of retry attempts (0 means no retries)
	Interval uint // Delay between retries in seconds
}

// MultiConnects opens count independent connections with connFunc, applying
// retrierOpts to each one. A nil retrierOpts means a single attempt per
// connection.
//
// It fails fast: the first connection that cannot be opened aborts the call.
// Connections opened before the failure are closed when T implements
// io.Closer, so the caller never receives a partial set.
//
// Example Usage:
//
//	conns, err := retrier.MultiConnects(2, func() (*amqp.Connection, error) {
//	    return amqp.Dial(cfg.Urls.Rabbitmq)
//	}, &retrier.RetrierOpts{Count: 3, Interval: 2})
//	publisherConn, consumerConn := conns[0], conns[1]
func MultiConnects[T any](count uint8, connFunc func() (T, error), retrierOpts *RetrierOpts) ([]T, error) {
	var opts RetrierOpts
	if retrierOpts != nil {
		opts = *retrierOpts
	}

	conns := make([]T, 0, count)
	for range count {
		conn, err := Connect(uint8(opts.Count), opts.Interval, connFunc)
		if err != nil {
			release(conns)
			return nil, err
		}
		conns = append(conns, conn)
	}

	return conns, nil
}

func release[T any](conns []T) {
	for _, conn := range conns {
		if c, ok := any(conn).(io.Closer); ok {
			c.Close()
		}
	}
}
