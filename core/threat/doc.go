// Package threat flags suspicious requests.
//
// A Detector inspects a request snapshot and returns a Report. It never
// decides whether a flagged request is blocked; that is the job of Policy,
// which only blocks in production and never for allow-listed addresses.
// Two shape violations are rejected regardless of policy: a method outside
// the allow-list (405) and an over-long URI (414).
//
// Inputs are normalized with Unicode NFKC before matching, so full-width and
// compatibility forms of a payload match the same patterns as ASCII.
package threat
