package discord

import (
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// reliable re-issues a platform call for as long as it keeps being rate
// limited, sleeping for the server-indicated delay each time. There is
// deliberately no retry bound: the call is expected to eventually succeed
// or the process to be terminated from outside. Simplicity over backoff;
// swap this one function to change the policy.
func reliable[T any](call func() (T, error)) (T, error) {
	for {
		value, err := call()

		var rateLimit *discordgo.RateLimitError
		if errors.As(err, &rateLimit) {
			delay := rateLimit.RetryAfter
			if delay <= 0 {
				delay = time.Second
			}
			slog.Debug("Rate limited, waiting", "retry_after", delay)
			time.Sleep(delay)
			continue
		}

		return value, err
	}
}
