// Package notify turns a candidate notification into deliveries.
//
// A send passes through three steps. The Guard suppresses duplicates by
// looking for a recent record and then taking an atomic claim on the
// (user, subject, type, window) key. The PreferenceResolver loads the
// recipient's channel toggles. The Dispatcher runs the channel pipeline:
// the in-app record first, then realtime push, the message bus and email in
// parallel. Each channel runs under its own timeout and a failure in one
// never blocks or rolls back another.
package notify
