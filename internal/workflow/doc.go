// Package workflow runs one mailbox poll cycle end to end.
//
// A cycle reads unseen mail, hands every accepted link batch to the download
// pipeline, transcribes the saved videos of fact-check batches, pushes
// notifications, and finally marks the processed messages seen. Messages are
// only marked seen after their batch finished, so an interrupted cycle
// re-delivers the mail on the next run and the ledger keeps the retry
// idempotent.
package workflow
