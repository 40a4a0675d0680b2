// Package notifier fans one message out to every configured Telegram chat.
//
// # Delivery
//
// Dispatch runs one sequential attempt loop per recipient on a bounded worker
// pool. Transient failures (network, timeout, 5xx, 429) are retried with
// backoff up to the configured retry count; permanent ones (bad token, chat
// not found, bot blocked) end that recipient immediately. A failing recipient
// never delays or aborts the others.
//
// # Reports
//
// Every call returns a fresh Report whose outcomes follow the order of the
// resolved recipient list. Reports are never stored.
package notifier
