// Package monitoring reports errors that are swallowed on best-effort paths,
// such as persistence and snapshot writes.
package monitoring

import "time"

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor drops every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

// Recorder keeps captured errors in memory. Tests use it to assert that a
// failure was reported rather than propagated.
type Recorder struct {
	Errors []error
	Tags   []map[string]string
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err)
	r.Tags = append(r.Tags, tags)
}
func (r *Recorder) Recover()            {}
func (r *Recorder) Flush(time.Duration) {}
