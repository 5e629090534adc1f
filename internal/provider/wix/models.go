package wix

// Order — сырой заказ из API pricing-plans. Поля, которых нет в ответе,
// остаются пустыми: схема провайдера меняется независимо от нас.
type Order struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PlanName    string `json:"planName"`
	StartDate   string `json:"startDate"`
	CreatedDate string `json:"createdDate"`
	Buyer       struct {
		ContactID string `json:"contactId"`
	} `json:"buyer"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}

type contactResponse struct {
	Contact struct {
		PrimaryEmail struct {
			Email string `json:"email"`
		} `json:"primaryEmail"`
	} `json:"contact"`
}
