// Package chat holds the state of a single chat widget: the conversation log,
// the draft the user is typing, and the pending flag that gates sending while
// a predictor request is in flight.
//
// A submission moves through two states only:
//
//	idle -> sending -> idle
//
// Success and failure both return to idle. Failures never escape the session;
// they become a bot message with UnreachableReply as its text.
//
// Callers that own an event loop use Submit to perform the synchronous half of
// a submission and run the returned Exchange wherever they run blocking work.
// Callers that do not care use Send, which does both.
package chat
