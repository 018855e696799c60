/*
Package session owns the conversation session.

State is the live, in-memory conversation: the question index, the accepted
answers and the rendered history, changed only through named transitions.
Manager persists snapshots of it so an interrupted intake can be resumed,
serializing access per session ID with reference-counted local locks and an
optional distributed locker.
*/
package session
