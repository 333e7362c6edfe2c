package domain

// Status is the outcome of one logged request.
type Status string

const (
	OK Status = "OK"
	KO Status = "KO"
)
