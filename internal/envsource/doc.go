// Package envsource implements the multi-environment NaCl source (C7): a
// common source plus one source per environment, unioned with
// environment-overrides-common precedence, alongside a durable per-
// environment state store that overlays previously fetched hidden values
// onto the NaCl-visible element set.
package envsource
