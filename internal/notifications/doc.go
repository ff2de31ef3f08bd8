// Package notifications delivers upload acknowledgments back to the
// messaging client.
//
// The default implementation POSTs plain-text messages to the webhook
// configured under [notifications] and degrades to a no-op when no endpoint is
// set. Ingestion code depends only on the Service interface.
package notifications
