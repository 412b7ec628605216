// Package inbox collects link batches from an IMAP mailbox.
//
// IMAPSource searches the configured mailbox for unseen messages, fetches
// them without setting \Seen, and parses each one with ParseMessage: the
// sender must be on the allow-list, the first text/plain part (falling back
// to text/html) is scanned for video links, and a subject containing the
// fact-check keyword flags the batch for transcription. Callers mark
// messages seen once they have been handled, so a crash mid-batch leaves
// them for the next poll.
package inbox
