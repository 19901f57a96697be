// Package directupload uploads large files straight to S3-compatible object storage
// using the multipart protocol with presigned URLs, so file bytes never pass through
// an application server.
//
// The server hands out session metadata (upload ID, key, part size and count) and
// one presigned URL per part; the client splits the file, uploads parts with bounded
// concurrency, retries transient failures and finalizes or aborts the session.
//
// Key features:
//   - Sliding-window part scheduling with a configurable concurrency limit
//   - Per-part retry with exponential backoff and fresh authorization per attempt
//   - Monotonic progress snapshots pushed to a ProgressTracker
//   - Cooperative cancellation that always aborts the backend session
//   - Explicit handling of ambiguous completions through an existence probe
//
// Example usage:
//
//	api := transport.NewSessionClient("https://uploads.example.com")
//	ctrl := directupload.NewController(api,
//	    directupload.WithConcurrency(4),
//	    directupload.WithProgress(tracker),
//	)
//
//	outcome, err := ctrl.UploadFile(ctx, "/models/benchy.3mf")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(outcome.Key)
//
// The session API can also be a *coordinator.Coordinator when the client and the
// coordinator run in the same process.
package directupload
