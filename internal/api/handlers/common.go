package handlers

// ListResponse represents a list response with a total count
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
	Limit int         `json:"limit"`
}

// ListQuery represents common list query parameters
type ListQuery struct {
	Limit       int  `form:"limit" binding:"omitempty,min=1,max=500"`
	EnabledOnly bool `form:"enabled_only"`
}
