package models

import "net/http"

// RequestContext is what the web layer hands to this core about an inbound request
type RequestContext struct {
	IP        string
	UserAgent string
	Headers   http.Header
}

// Header returns the first value of the named header, or "" when absent
func (r RequestContext) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}
