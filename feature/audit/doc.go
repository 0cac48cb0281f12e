// Package audit exposes the payroll comparison workflow over HTTP.
//
// It accepts two uploaded payroll files plus comparison settings, runs the
// reconciliation engine, and persists both the uploads and the resulting
// report in object storage under a generated comparison id. Stored reports
// can be fetched back by id, and a public status endpoint reports the engine
// version and the supported format tags.
package audit
