// Package dateselect implements the date-range selection engine behind the
// dashboard's analysis controls: the working-day cutoff calculator, the
// 42-cell calendar grid builder, and the preset/custom range selector.
//
// All range endpoints are clipped to the most recent completed trading day
// (the "cutoff"), anchored to US Eastern time via the tz database. Dates are
// exchanged as "2006-01-02" strings, matching the backend contract.
package dateselect
