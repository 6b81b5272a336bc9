package policy

// Denied is the error form of a rejecting Decision. Hidden denials are
// reported to clients as not found.
type Denied struct {
	Hidden bool
	Reason string
}

func (d *Denied) Error() string { return d.Reason }

// Err converts a decision into an error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &Denied{Hidden: d.Hidden, Reason: d.Reason}
}
