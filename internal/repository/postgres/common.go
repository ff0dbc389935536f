package postgres

// ListOptions controls pagination and filtering for list queries
type ListOptions struct {
	EnabledOnly bool
	Limit       int
}

func (o *ListOptions) normalize() (bool, int) {
	limit := 100
	enabledOnly := false
	if o != nil {
		if o.Limit > 0 {
			limit = o.Limit
		}
		enabledOnly = o.EnabledOnly
	}
	if limit > 500 {
		limit = 500
	}
	return enabledOnly, limit
}
