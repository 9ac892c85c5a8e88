/*
Package metrics exposes knockd's Prometheus metrics and the component
health registry backing the /healthz and /readyz endpoints.
*/
package metrics
