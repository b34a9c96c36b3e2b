// Package session holds the conversation state of a single backend session.
//
// A Transcript is created when a leaf agent opens a model session and is
// discarded together with it. Nothing here persists history across sessions;
// model adapters read the transcript to replay earlier turns to stateless
// chat APIs.
package session
