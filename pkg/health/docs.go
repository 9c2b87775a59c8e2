package health

// swagger:response Health
type _ struct {
	//in: body
	_ struct {
		Status string `json:"status"`
	}
}
