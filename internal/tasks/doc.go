// Package tasks runs the recent-albums sync pass and the scheduler that repeats it.
//
// # Sync Pass
//
// [AlbumEngine.Sync] turns one page of a listener's recent tracks into at most N distinct albums:
//
//  1. Fetch the recent-tracks feed. Any failure aborts the pass and leaves the stored snapshot untouched.
//  2. Walk tracks most recent first, skipping album titles already accepted (compared with [shared.NormalizeTitle]).
//  3. Look each new album up by MBID, or by title under the fallback artist when there is no MBID.
//     The lookup supplies the canonical page link and, on the fallback path only, a replacement thumbnail.
//  4. Drop albums with no usable thumbnail; stop once the cap is reached.
//  5. Replace the stored snapshot.
//
// Lookups for consecutive candidates run concurrently in small windows, throttled by a rate limiter.
// Results are folded back in feed order, so the output is the same as a one-at-a-time walk.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Sends never block: a full channel drops the update.
//
// # Scheduling
//
// [Scheduler] invokes a [Task] on a fixed interval. A tick that fires while the previous run is still going is skipped.
// Cancelling the context passed to [Scheduler.Run] stops the ticker and waits for an in-flight run to return.
package tasks
