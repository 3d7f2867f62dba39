package retrier

import "time"

// Connect attempts to establish a connection with retry logic.
//
// This generic function executes a connection function multiple times if it fails,
// waiting a specified duration between attempts. It's useful for handling temporary
// connection failures in distributed systems or unreliable networks.
//
// Type Parameters:
//   - T: The type of the connection object to be returned
//
// Parameters:
//   - retry: Maximum number of retry attempts (0 means exactly one attempt)
//   - sleep: Delay between retries in seconds (ignored if retry is 0)
//   - connector: Function that establishes the connection (returns T and error)
//
// Returns:
//   - T: The successfully established connection (on success)
//   - error: The last error encountered if all attempts failed, or nil on success
//
// Behavior:
//   - Attempts the connection up to retry+1 times (initial attempt + retries)
//   - Returns immediately on first successful connection
//   - Sleeps between failed attempts (except after the last attempt)
//   - Returns the last error if all attempts fail
//   - Zero retry value results in exactly one attempt with no waiting
//
// Example Usage:
//
//	client, err := retrier.Connect(3, 2, func() (*mongo.Client, error) {
//	    return repository.ConnectMongo(ctx, uri)
//	})
func Connect[T any](retry uint8, sleep uint, connector func() (T, error)) (T, error) {
	var (
		out T     // Will hold the successful connection
		err error // Will hold any connection error
	)

	// Attempt connection up to retry+1 times
	for attempt := 0; attempt <= int(retry); attempt++ {
		out, err = connector()

		// Return immediately if connection succeeds
		if err == nil {
			return out, nil
		}

		// Wait before next attempt, except after the final attempt
		if attempt < int(retry) {
			time.Sleep(time.Duration(sleep) * time.Second)
		}
	}

	// All attempts failed, report the last error
	return out, err
}

// Do runs fn with the same retry policy as Connect, for operations that
// produce no value.
//
// Example Usage:
//
//	err := retrier.Do(3, 1, func() error {
//	    return cache.AddToCash(ctx, key, payload)
//	})
func Do(retry uint8, sleep uint, fn func() error) error {
	_, err := Connect(retry, sleep, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
