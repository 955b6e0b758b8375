// Package services holds shared plumbing for the external provider clients:
// the error taxonomy used to classify failures, context annotations that
// carry conversation identity across stage boundaries, and retry backoff
// helpers shared by the HTTP clients.
package services
