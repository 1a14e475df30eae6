// Package services holds cross-cutting helpers shared by pipeline
// components: the sentinel error taxonomy used to classify failures, the
// Wrap helper that tags errors with stage context, and context annotation
// helpers for correlating log lines with groups, segments, and requests.
package services
