// Package notify delivers account notifications, currently the email
// confirmation message, off the request path.
//
// A Dispatcher queues messages and hands them to a Notifier on a single
// worker goroutine. Delivery failures are reported through the configured
// error handler and never reach the caller that queued the message.
package notify
