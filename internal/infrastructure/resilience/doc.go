/*
Package resilience provides a circuit breaker for outbound calls.

The LLM client runs every chat-completions request through a Breaker so a
failing upstream is shed quickly instead of holding tool calls for the full
timeout.

# Usage

	breaker := resilience.New("llm", resilience.Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	answer, err := resilience.Do(ctx, breaker, func(ctx context.Context) (string, error) {
		return client.Complete(ctx, req)
	})

# States

	Closed --[trip]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                        |
	                                    [failure]
	                                        v
	                                      Open
*/
package resilience
