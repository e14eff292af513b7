// Package ratelimit paces calls to the ClickUp API.
//
// Two mechanisms are provided. A Pacer applies the fixed delay the fetch
// pipeline inserts after page fetches, download attempts and tasks. A
// Ceiling caps the request rate inside the API client so that a
// misconfigured delay can never exceed the server's per-minute quota.
//
//	pacer := ratelimit.NewFixedDelay(600 * time.Millisecond)
//	if err := pacer.Pause(ctx); err != nil {
//	    return err // cancelled
//	}
//
//	ceiling := ratelimit.NewCeiling(85)
//	_ = ceiling.Wait(ctx)
package ratelimit
